// Package gocommand routes formbridge commands and queries through the
// go-command dispatcher and registry.
package gocommand

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
)

// ValidateMessageContract checks that msg has a non-empty Type() and passes
// its own Validate() when it has one.
func ValidateMessageContract(msg any) error {
	typed, ok := msg.(command.Message)
	if !ok {
		return core.NewError("gocommand: message must implement Type() string", goerrors.CategoryBadInput, nil)
	}
	messageType := strings.TrimSpace(typed.Type())
	if messageType == "" {
		return core.NewError("gocommand: message type is required", goerrors.CategoryBadInput, nil)
	}
	if err := command.ValidateMessage(msg); err != nil {
		var rich *goerrors.Error
		if errors.As(err, &rich) {
			return rich
		}
		return core.WrapError(err, goerrors.CategoryBadInput, "gocommand: message rejected", map[string]any{"type": messageType})
	}
	return nil
}

// RegistryAdapter keeps the handlers a Bus subscribed so they can be
// initialized together.
type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) Register(handler any) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.RegisterCommand(handler)
}

func (a *RegistryAdapter) Initialize() error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.Initialize()
}

func (a *RegistryAdapter) ready() error {
	if a == nil || a.registry == nil {
		return core.NotConfiguredError("gocommand registry")
	}
	return nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// RegisterAndSubscribe subscribes cmd and records it in the registry,
// unsubscribing again if registration fails.
func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if cmd == nil {
		return subscribe(adapter, nil, nil)
	}
	return subscribe(adapter, cmd, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	})
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if qry == nil {
		return subscribe(adapter, nil, nil)
	}
	return subscribe(adapter, qry, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	})
}

func subscribe(adapter *RegistryAdapter, handler any, attach func() commanddispatcher.Subscription) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	if handler == nil || attach == nil {
		return nil, core.NewError("gocommand: handler is required", goerrors.CategoryBadInput, nil)
	}
	subscription := attach()
	if err := adapter.Register(handler); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}
