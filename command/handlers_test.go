package command

import (
	"context"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
)

type stubSweeper struct {
	sweepFn func(ctx context.Context, req core.SweepRequest) (core.SweepReport, error)
}

func (s stubSweeper) Sweep(ctx context.Context, req core.SweepRequest) (core.SweepReport, error) {
	return s.sweepFn(ctx, req)
}

func TestSweepWebhooksCommand_ExecuteStoresReport(t *testing.T) {
	var got core.SweepRequest
	svc := stubSweeper{sweepFn: func(_ context.Context, req core.SweepRequest) (core.SweepReport, error) {
		got = req
		return core.SweepReport{Policy: req.Policy, Trigger: req.Trigger, Forms: []core.FormOutcome{
			{Form: core.Form{ID: "f1"}, Status: core.FormStatusRegistered},
		}}, nil
	}}

	cmd := NewSweepWebhooksCommand(svc)
	collector := gocmd.NewResult[core.SweepReport]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, SweepWebhooksMessage{Policy: core.PolicyReset, Force: true})
	if err != nil {
		t.Fatalf("execute sweep: %v", err)
	}
	if got.Trigger != core.SweepTriggerManual || !got.Force || got.Policy != core.PolicyReset {
		t.Fatalf("unexpected sweep request: %#v", got)
	}
	report, ok := collector.Load()
	if !ok {
		t.Fatalf("expected report to be stored")
	}
	if len(report.Registered()) != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestSweepWebhooksCommand_PropagatesSweepErrors(t *testing.T) {
	svc := stubSweeper{sweepFn: func(context.Context, core.SweepRequest) (core.SweepReport, error) {
		return core.SweepReport{}, core.SweepInProgressError(core.SweepTriggerManual)
	}}
	err := NewSweepWebhooksCommand(svc).Execute(context.Background(), SweepWebhooksMessage{})
	if !errors.Is(err, core.ErrSweepInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}
}

func TestSweepWebhooksCommand_RequiresSweeper(t *testing.T) {
	err := NewSweepWebhooksCommand(nil).Execute(context.Background(), SweepWebhooksMessage{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.ErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.ErrorInternal, rich.TextCode)
	}
}

func TestSweepWebhooksMessage_Validate(t *testing.T) {
	if err := (SweepWebhooksMessage{}).Validate(); err != nil {
		t.Fatalf("expected empty message to be valid: %v", err)
	}
	if err := (SweepWebhooksMessage{Policy: "purge"}).Validate(); err == nil {
		t.Fatalf("expected unknown policy to fail validation")
	}
	err := (SweepWebhooksMessage{Policy: core.PolicyAdditive, Force: true}).Validate()
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if (SweepWebhooksMessage{}).Type() != TypeSweepWebhooks {
		t.Fatalf("unexpected message type")
	}
}
