package reconcile

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// StatusDeleted marks forms the forms service keeps in the trash.
const StatusDeleted = "DELETED"

type Option func(*Reconciler)

func WithConcurrency(limit int) Option {
	return func(r *Reconciler) {
		if limit > 0 {
			r.concurrency = limit
		}
	}
}

func WithDefaultPolicy(policy core.Policy) Option {
	return func(r *Reconciler) {
		if policy.IsValid() {
			r.defaultPolicy = policy
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(r *Reconciler) {
		if recorder != nil {
			r.metrics = recorder
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

type Reconciler struct {
	forms         core.FormsService
	canonicalURL  string
	defaultPolicy core.Policy
	concurrency   int
	logger        core.Logger
	metrics       core.MetricsRecorder
	observer      *core.Observer
	now           func() time.Time
	running       atomic.Bool
}

func NewReconciler(forms core.FormsService, canonicalURL string, opts ...Option) (*Reconciler, error) {
	canonicalURL = strings.TrimSpace(canonicalURL)
	missing := []string{}
	if forms == nil {
		missing = append(missing, "forms_service")
	}
	if canonicalURL == "" {
		missing = append(missing, "reconcile.canonical_url")
	}
	if len(missing) > 0 {
		return nil, core.NotConfiguredError("reconciler", missing...)
	}

	r := &Reconciler{
		forms:         forms,
		canonicalURL:  canonicalURL,
		defaultPolicy: core.PolicyAdditive,
		concurrency:   defaultConcurrency,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.observer = core.NewObserver(core.DefaultServiceName, r.logger, r.metrics)
	return r, nil
}

func (r *Reconciler) CanonicalURL() string {
	return r.canonicalURL
}

func (r *Reconciler) DefaultPolicy() core.Policy {
	return r.defaultPolicy
}

// Running reports whether a sweep currently holds the guard.
func (r *Reconciler) Running() bool {
	return r.running.Load()
}

// Sweep runs one reconciliation pass. It fails with a conflict when another
// sweep is in progress and with an upstream error when forms cannot be listed;
// per-form failures are reported in the outcome list instead.
func (r *Reconciler) Sweep(ctx context.Context, req core.SweepRequest) (report core.SweepReport, err error) {
	if req.Policy == "" {
		req.Policy = r.defaultPolicy
	}
	if !req.Policy.IsValid() {
		return core.SweepReport{}, reconcileError("reconcile: invalid policy", goerrors.CategoryBadInput, map[string]any{
			"policy": string(req.Policy),
		})
	}
	if req.Trigger == "" {
		req.Trigger = core.SweepTriggerManual
	}
	if !r.running.CompareAndSwap(false, true) {
		r.observer.Count(ctx, "sweep.skipped", 1, map[string]string{"trigger": string(req.Trigger)})
		return core.SweepReport{}, core.SweepInProgressError(req.Trigger)
	}
	defer r.running.Store(false)

	startedAt := r.now()
	report = core.SweepReport{
		Policy:    req.Policy,
		Trigger:   req.Trigger,
		DryRun:    req.DryRun,
		StartedAt: startedAt,
		Forms:     []core.FormOutcome{},
	}
	defer func() {
		report.Duration = r.now().Sub(startedAt)
		r.observer.ObserveOperation(ctx, startedAt, "sweep", err, map[string]any{
			"policy":          string(req.Policy),
			"trigger":         string(req.Trigger),
			"dry_run":         req.DryRun,
			"forms":           len(report.Forms),
			"registered":      len(report.Registered()),
			"already_correct": len(report.AlreadyCorrect()),
			"corrected":       len(report.Corrected()),
			"failed":          len(report.Failed()),
			"actions":         report.ActionCount(),
		})
	}()

	forms, err := r.activeForms(ctx)
	if err != nil {
		return report, err
	}

	outcomes := make([]core.FormOutcome, len(forms))
	group := new(errgroup.Group)
	group.SetLimit(r.concurrency)
	for index, form := range forms {
		group.Go(func() error {
			outcomes[index] = r.reconcileForm(ctx, form, req)
			return nil
		})
	}
	_ = group.Wait()
	report.Forms = outcomes
	return report, nil
}

// Audit lists every active form's registrations without changing anything.
func (r *Reconciler) Audit(ctx context.Context) (report core.AuditReport, err error) {
	startedAt := r.now()
	report = core.AuditReport{CanonicalURL: r.canonicalURL, Forms: []core.FormAudit{}}
	defer func() {
		r.observer.ObserveOperation(ctx, startedAt, "audit", err, map[string]any{
			"forms": len(report.Forms),
		})
	}()

	forms, err := r.activeForms(ctx)
	if err != nil {
		return report, err
	}
	audits := make([]core.FormAudit, len(forms))
	group := new(errgroup.Group)
	group.SetLimit(r.concurrency)
	for index, form := range forms {
		group.Go(func() error {
			audit := core.FormAudit{Form: form, Registrations: []core.WebhookRegistration{}}
			registrations, listErr := r.forms.ListWebhooks(ctx, form.ID)
			if listErr != nil {
				audit.Error = listErr.Error()
				audits[index] = audit
				return nil
			}
			audit.Registrations = registrations
			for _, registration := range registrations {
				if registration.URL == r.canonicalURL {
					audit.CanonicalPresent = true
					break
				}
			}
			audit.Converged = Converged(r.canonicalURL, registrations)
			audits[index] = audit
			return nil
		})
	}
	_ = group.Wait()
	report.Forms = audits
	return report, nil
}

func (r *Reconciler) activeForms(ctx context.Context) ([]core.Form, error) {
	forms, err := r.forms.ListForms(ctx)
	if err != nil {
		return nil, reconcileWrapError(err, goerrors.CategoryExternal, "reconcile: list forms failed", nil)
	}
	active := make([]core.Form, 0, len(forms))
	for _, form := range forms {
		if strings.EqualFold(strings.TrimSpace(form.Status), StatusDeleted) {
			continue
		}
		active = append(active, form)
	}
	return active, nil
}

func (r *Reconciler) reconcileForm(ctx context.Context, form core.Form, req core.SweepRequest) (outcome core.FormOutcome) {
	startedAt := r.now()
	outcome = core.FormOutcome{Form: form, Plan: core.Plan{FormID: form.ID, Actions: []core.Action{}}}
	var err error
	defer func() {
		r.observer.ObserveOperation(ctx, startedAt, "reconcile_form", err, map[string]any{
			"form_id": form.ID,
			"title":   form.Title,
			"policy":  string(req.Policy),
			"outcome": string(outcome.Status),
			"planned": len(outcome.Plan.Actions),
			"applied": len(outcome.Applied),
		})
	}()

	registrations, err := r.forms.ListWebhooks(ctx, form.ID)
	if err != nil {
		outcome.Status = core.FormStatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Plan = Decide(form.ID, req.Policy, r.canonicalURL, registrations, req.Force)
	switch {
	case outcome.Plan.Empty():
		outcome.Status = core.FormStatusCorrect
		return outcome
	case req.DryRun:
		outcome.Status = core.FormStatusPlanned
		return outcome
	}

	for _, action := range outcome.Plan.Actions {
		if err = r.apply(ctx, form.ID, action); err != nil {
			outcome.Status = core.FormStatusFailed
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Applied = append(outcome.Applied, action)
		r.observer.Count(ctx, "webhook_actions.total", 1, map[string]string{
			"action": string(action.Kind),
			"policy": string(req.Policy),
		})
	}

	if outcome.Plan.HasAdd() {
		outcome.Status = core.FormStatusRegistered
	} else {
		outcome.Status = core.FormStatusCorrected
	}
	return outcome
}

func (r *Reconciler) apply(ctx context.Context, formID string, action core.Action) error {
	switch action.Kind {
	case core.ActionDelete:
		return r.forms.DeleteWebhook(ctx, formID, action.WebhookID)
	case core.ActionAdd:
		return r.forms.AddWebhook(ctx, formID, action.URL)
	default:
		return reconcileError("reconcile: unknown action", goerrors.CategoryInternal, map[string]any{
			"action": string(action.Kind),
		})
	}
}
