package command

import (
	"strings"

	"github.com/goliatone/go-formbridge/core"
)

const TypeSweepWebhooks = "formbridge.command.webhooks.sweep"

// SweepWebhooksMessage asks for one reconciliation sweep. An empty policy
// uses the reconciler default.
type SweepWebhooksMessage struct {
	Policy  core.Policy
	Trigger core.SweepTrigger
	DryRun  bool
	Force   bool
}

func (SweepWebhooksMessage) Type() string { return TypeSweepWebhooks }

func (m SweepWebhooksMessage) Validate() error {
	if policy := strings.TrimSpace(string(m.Policy)); policy != "" && !core.Policy(policy).IsValid() {
		return commandValidationError("policy", "must be one of additive, keep_canonical, reset")
	}
	if m.Force && m.Policy != "" && m.Policy != core.PolicyReset {
		return commandValidationError("force", "only applies to the reset policy")
	}
	return nil
}

func (m SweepWebhooksMessage) Request() core.SweepRequest {
	trigger := m.Trigger
	if trigger == "" {
		trigger = core.SweepTriggerManual
	}
	return core.SweepRequest{
		Policy:  core.Policy(strings.TrimSpace(string(m.Policy))),
		Trigger: trigger,
		DryRun:  m.DryRun,
		Force:   m.Force,
	}
}
