package inbound

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/normalize"
	"github.com/google/uuid"
)

const (
	SkipReasonNoRouter = "router_url_unset"
	SkipReasonNoEmail  = "missing_email"
)

type ProcessorOption func(*Processor)

func WithUnwrapper(unwrapper *normalize.Unwrapper) ProcessorOption {
	return func(p *Processor) {
		if unwrapper != nil {
			p.unwrapper = unwrapper
		}
	}
}

func WithBuilder(builder *normalize.Builder) ProcessorOption {
	return func(p *Processor) {
		if builder != nil {
			p.builder = builder
		}
	}
}

// WithRequireEmail controls whether records without an email are forwarded.
func WithRequireEmail(required bool) ProcessorOption {
	return func(p *Processor) {
		p.requireEmail = required
	}
}

func WithObserver(observer *core.Observer) ProcessorOption {
	return func(p *Processor) {
		if observer != nil {
			p.observer = observer
		}
	}
}

func WithIDGenerator(next func() string) ProcessorOption {
	return func(p *Processor) {
		if next != nil {
			p.newID = next
		}
	}
}

// Processor runs one submission through unwrap, build and forward.
type Processor struct {
	unwrapper    *normalize.Unwrapper
	builder      *normalize.Builder
	forwarder    core.Forwarder
	requireEmail bool
	observer     *core.Observer
	newID        func() string
}

// NewProcessor accepts a nil forwarder; every submission is then skipped.
func NewProcessor(forwarder core.Forwarder, opts ...ProcessorOption) *Processor {
	p := &Processor{
		unwrapper:    normalize.NewUnwrapper(),
		builder:      normalize.NewBuilder(),
		forwarder:    forwarder,
		requireEmail: true,
		observer:     core.NewObserver(core.DefaultServiceName, nil, nil),
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Processor) NewDeliveryID() string {
	return p.newID()
}

func (p *Processor) Process(ctx context.Context, envelope normalize.Fields) core.SubmissionResult {
	return p.process(ctx, p.newID(), envelope)
}

func (p *Processor) process(ctx context.Context, deliveryID string, envelope normalize.Fields) core.SubmissionResult {
	startedAt := time.Now()
	submission := p.unwrapper.Unwrap(ctx, envelope)
	record := p.builder.Build(submission)
	result := core.SubmissionResult{
		DeliveryID: deliveryID,
		Unwrapped:  submission.Unwrapped,
		Record:     record,
	}
	fields := map[string]any{
		"delivery_id": deliveryID,
		"form_id":     record.FormID,
		"unwrapped":   submission.Unwrapped,
	}

	switch {
	case p.forwarder == nil:
		result.Status = core.SubmissionSkipped
		result.Reason = SkipReasonNoRouter
	case p.requireEmail && strings.TrimSpace(record.Email) == "":
		result.Status = core.SubmissionSkipped
		result.Reason = SkipReasonNoEmail
	}
	if result.Status == core.SubmissionSkipped {
		fields["reason"] = result.Reason
		p.observer.Log(ctx, "warn", "submission not forwarded", fields)
		p.observer.Count(ctx, "submissions.total", 1, map[string]string{
			"status": string(result.Status),
			"reason": result.Reason,
		})
		return result
	}

	err := p.forwarder.Forward(ctx, record)
	if err != nil {
		result.Status = core.SubmissionFailed
		result.Reason = err.Error()
		if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
			err = inboundWrapError(err, goerrors.CategoryExternal, "inbound: forward to crm failed", map[string]any{
				"delivery_id": deliveryID,
			})
		}
	} else {
		result.Status = core.SubmissionForwarded
	}
	p.observer.ObserveOperation(ctx, startedAt, "forward_submission", err, fields)
	p.observer.Count(ctx, "submissions.total", 1, map[string]string{"status": string(result.Status)})
	return result
}
