package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-formbridge/core"
)

type SweepWebhooksCommand struct {
	sweeper core.Sweeper
}

func NewSweepWebhooksCommand(sweeper core.Sweeper) *SweepWebhooksCommand {
	return &SweepWebhooksCommand{sweeper: sweeper}
}

// Execute runs the sweep and stores the report in the result collector on
// ctx when there is one. A partial report is stored even on failure.
func (c *SweepWebhooksCommand) Execute(ctx context.Context, msg SweepWebhooksMessage) error {
	if c == nil || c.sweeper == nil {
		return commandDependencyError("command: webhook sweeper is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	report, err := c.sweeper.Sweep(ctx, msg.Request())
	if err != nil {
		return err
	}
	storeResult(ctx, report)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
