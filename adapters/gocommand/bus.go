package gocommand

import (
	"context"
	"sync"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/command"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/query"
)

// Bus routes sweep and audit requests through the go-command dispatcher.
// The dispatcher is process wide, so only one Bus should be open at a time.
type Bus struct {
	adapter       *RegistryAdapter
	mu            sync.Mutex
	subscriptions []commanddispatcher.Subscription
}

func NewBus(sweeper core.Sweeper, auditor core.Auditor) (*Bus, error) {
	bus := &Bus{adapter: NewRegistryAdapter(nil)}

	sweep, err := RegisterAndSubscribe(bus.adapter, gocmd.Commander[command.SweepWebhooksMessage](command.NewSweepWebhooksCommand(sweeper)))
	if err != nil {
		return nil, err
	}
	bus.subscriptions = append(bus.subscriptions, sweep)

	audit, err := RegisterAndSubscribeQuery(bus.adapter, gocmd.Querier[query.AuditWebhooksMessage, core.AuditReport](query.NewAuditWebhooksQuery(auditor)))
	if err != nil {
		bus.Close()
		return nil, err
	}
	bus.subscriptions = append(bus.subscriptions, audit)

	if err := bus.adapter.Initialize(); err != nil {
		bus.Close()
		return nil, err
	}
	return bus, nil
}

// Sweep dispatches a sweep command and returns the report it stored.
func (b *Bus) Sweep(ctx context.Context, req core.SweepRequest) (core.SweepReport, error) {
	msg := command.SweepWebhooksMessage{
		Policy:  req.Policy,
		Trigger: req.Trigger,
		DryRun:  req.DryRun,
		Force:   req.Force,
	}
	if err := ValidateMessageContract(msg); err != nil {
		return core.SweepReport{}, err
	}
	collector := gocmd.NewResult[core.SweepReport]()
	if err := Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return core.SweepReport{}, unwrapDispatchError(err)
	}
	report, ok := collector.Load()
	if !ok {
		return core.SweepReport{}, core.NewError("gocommand: sweep produced no report", goerrors.CategoryInternal, nil)
	}
	return report, nil
}

func (b *Bus) Audit(ctx context.Context) (core.AuditReport, error) {
	report, err := Query[query.AuditWebhooksMessage, core.AuditReport](ctx, query.AuditWebhooksMessage{})
	if err != nil {
		return core.AuditReport{}, unwrapDispatchError(err)
	}
	return report, nil
}

func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subscription := range b.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

// unwrapDispatchError surfaces the handler's categorized error when the
// dispatcher wraps it.
func unwrapDispatchError(err error) error {
	if err == nil {
		return nil
	}
	return core.MapError(err)
}

var (
	_ core.Sweeper = (*Bus)(nil)
	_ core.Auditor = (*Bus)(nil)
)
