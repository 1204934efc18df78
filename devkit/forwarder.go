package devkit

import (
	"context"
	"sync"

	"github.com/goliatone/go-formbridge/core"
)

// FakeForwarder records forwarded records. With a gate set, Forward waits
// for the gate to close or the context to end, which simulates a hanging CRM.
type FakeForwarder struct {
	mu        sync.Mutex
	records   []core.CanonicalRecord
	err       error
	gate      <-chan struct{}
	delivered chan core.CanonicalRecord
}

func NewFakeForwarder() *FakeForwarder {
	return &FakeForwarder{delivered: make(chan core.CanonicalRecord, 64)}
}

func (f *FakeForwarder) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeForwarder) Gate(gate <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
}

func (f *FakeForwarder) Forward(ctx context.Context, record core.CanonicalRecord) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	f.records = append(f.records, record)
	err := f.err
	f.mu.Unlock()

	select {
	case f.delivered <- record:
	default:
	}
	return err
}

// Delivered yields each record as Forward receives it.
func (f *FakeForwarder) Delivered() <-chan core.CanonicalRecord {
	return f.delivered
}

func (f *FakeForwarder) Records() []core.CanonicalRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.CanonicalRecord(nil), f.records...)
}

var _ core.Forwarder = (*FakeForwarder)(nil)
