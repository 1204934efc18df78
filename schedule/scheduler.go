// Package schedule runs reconciliation sweeps on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/robfig/cron/v3"
)

type Option func(*Scheduler)

func WithLogger(logger core.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(s *Scheduler) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithPolicy overrides the sweeper's default policy for scheduled runs.
func WithPolicy(policy core.Policy) Option {
	return func(s *Scheduler) {
		s.policy = policy
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// Scheduler owns the recurring sweep timer. Tests drive it through RunNow.
type Scheduler struct {
	sweeper  core.Sweeper
	spec     string
	policy   core.Policy
	logger   core.Logger
	metrics  core.MetricsRecorder
	location *time.Location

	cron     *cron.Cron
	observer *core.Observer

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func New(sweeper core.Sweeper, spec string, opts ...Option) (*Scheduler, error) {
	if sweeper == nil {
		return nil, core.NotConfiguredError("scheduler", "sweeper")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = core.DefaultSweepSchedule
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, core.WrapError(err, goerrors.CategoryBadInput, "schedule: invalid cron expression", map[string]any{
			"schedule": spec,
		})
	}

	s := &Scheduler{
		sweeper:  sweeper,
		spec:     spec,
		logger:   glog.Nop(),
		metrics:  core.NopMetricsRecorder{},
		location: time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.observer = core.NewObserver(core.DefaultServiceName, s.logger, s.metrics)

	logger := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(spec, s.runScheduled); err != nil {
		return nil, core.WrapError(err, goerrors.CategoryBadInput, "schedule: register sweep job", map[string]any{
			"schedule": spec,
		})
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

func (s *Scheduler) Spec() string {
	return s.spec
}

// Next returns the next scheduled run, zero when the scheduler is stopped.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("sweep scheduler started", "schedule", s.spec)
}

// Stop halts the timer, cancels a running scheduled sweep and waits for it
// until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	s.cancel()
	if !started {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return core.WrapError(ctx.Err(), goerrors.CategoryOperation, "schedule: stop interrupted", nil)
	}
}

// RunNow performs one sweep as the scheduler would.
func (s *Scheduler) RunNow(ctx context.Context) (core.SweepReport, error) {
	return s.sweep(ctx, core.SweepTriggerSchedule)
}

// RunOnStart performs the startup sweep.
func (s *Scheduler) RunOnStart(ctx context.Context) (core.SweepReport, error) {
	return s.sweep(ctx, core.SweepTriggerStartup)
}

func (s *Scheduler) runScheduled() {
	_, _ = s.sweep(s.ctx, core.SweepTriggerSchedule)
}

func (s *Scheduler) sweep(ctx context.Context, trigger core.SweepTrigger) (core.SweepReport, error) {
	report, err := s.sweeper.Sweep(ctx, core.SweepRequest{Policy: s.policy, Trigger: trigger})
	fields := map[string]any{"trigger": string(trigger)}
	switch {
	case errors.Is(err, core.ErrSweepInProgress):
		s.observer.Log(ctx, "info", "sweep skipped, another sweep is running", fields)
	case err != nil:
		fields["error"] = err.Error()
		s.observer.Log(ctx, "error", "scheduled sweep failed", fields)
	default:
		fields["policy"] = string(report.Policy)
		fields["actions"] = report.ActionCount()
		fields["failed"] = len(report.Failed())
		s.observer.Log(ctx, "info", "scheduled sweep finished", fields)
	}
	return report, err
}

// cronLogger routes cron's own logging through the service logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"error", err}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}

var _ cron.Logger = cronLogger{}
