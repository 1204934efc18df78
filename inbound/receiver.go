package inbound

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/normalize"
	"golang.org/x/sync/semaphore"
)

const (
	defaultProcessTimeout = 30 * time.Second
	defaultMaxConcurrency = 64
)

// SkipReasonSaturated marks a submission that never got a processing slot
// before its timeout.
const SkipReasonSaturated = "receiver_saturated"

type ReceiverOption func(*Receiver)

func WithProcessTimeout(timeout time.Duration) ReceiverOption {
	return func(r *Receiver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithMaxConcurrency caps how many submissions decode and forward at once.
// Submissions beyond the cap wait for a slot within their process timeout.
func WithMaxConcurrency(limit int) ReceiverOption {
	return func(r *Receiver) {
		if limit > 0 {
			r.maxConcurrency = limit
		}
	}
}

// WithResultHook is called once per submission after processing finishes.
func WithResultHook(hook func(core.SubmissionResult)) ReceiverOption {
	return func(r *Receiver) {
		r.hook = hook
	}
}

// Receiver runs submissions in the background, detached from the request
// that delivered them.
type Receiver struct {
	processor      *Processor
	timeout        time.Duration
	maxConcurrency int
	hook           func(core.SubmissionResult)
	slots          *semaphore.Weighted

	wg       sync.WaitGroup
	inFlight atomic.Int64
}

func NewReceiver(processor *Processor, opts ...ReceiverOption) *Receiver {
	if processor == nil {
		processor = NewProcessor(nil)
	}
	r := &Receiver{
		processor:      processor,
		timeout:        defaultProcessTimeout,
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.slots = semaphore.NewWeighted(int64(r.maxConcurrency))
	return r
}

// Submit starts processing a decoded envelope and returns the delivery id
// immediately. The work keeps running when ctx is cancelled, bounded by the
// process timeout.
func (r *Receiver) Submit(ctx context.Context, envelope normalize.Fields) string {
	return r.start(ctx, func(context.Context, string) normalize.Fields {
		return envelope
	})
}

// SubmitDelivery is Submit for a raw delivery. Decoding happens in the
// background; a source that fails to decode is logged and left out.
func (r *Receiver) SubmitDelivery(ctx context.Context, delivery Delivery) string {
	return r.start(ctx, func(runCtx context.Context, deliveryID string) normalize.Fields {
		envelope, err := delivery.Envelope()
		if err != nil {
			r.processor.observer.Log(runCtx, "warn", "submission could not be fully decoded", map[string]any{
				"delivery_id":  deliveryID,
				"content_type": delivery.ContentType,
				"error":        err.Error(),
			})
		}
		return envelope
	})
}

func (r *Receiver) start(ctx context.Context, envelope func(context.Context, string) normalize.Fields) string {
	if ctx == nil {
		ctx = context.Background()
	}
	deliveryID := r.processor.NewDeliveryID()
	detached := context.WithoutCancel(ctx)

	r.wg.Add(1)
	r.inFlight.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inFlight.Add(-1)

		runCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		var result core.SubmissionResult
		if err := r.slots.Acquire(runCtx, 1); err != nil {
			result = r.saturated(runCtx, deliveryID)
		} else {
			result = r.processor.process(runCtx, deliveryID, envelope(runCtx, deliveryID))
			r.slots.Release(1)
		}
		if r.hook != nil {
			r.hook(result)
		}
	}()
	return deliveryID
}

func (r *Receiver) saturated(ctx context.Context, deliveryID string) core.SubmissionResult {
	r.processor.observer.Log(ctx, "error", "submission dropped, no processing slot before timeout", map[string]any{
		"delivery_id":     deliveryID,
		"max_concurrency": r.maxConcurrency,
	})
	r.processor.observer.Count(ctx, "submissions.total", 1, map[string]string{
		"status": string(core.SubmissionSkipped),
		"reason": SkipReasonSaturated,
	})
	return core.SubmissionResult{
		DeliveryID: deliveryID,
		Status:     core.SubmissionSkipped,
		Reason:     SkipReasonSaturated,
	}
}

func (r *Receiver) InFlight() int64 {
	return r.inFlight.Load()
}

// Drain waits for queued submissions or until ctx ends.
func (r *Receiver) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return inboundWrapError(ctx.Err(), goerrors.CategoryOperation, "inbound: drain interrupted", map[string]any{
			"in_flight": r.InFlight(),
		})
	}
}
