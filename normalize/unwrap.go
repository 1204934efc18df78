package normalize

import (
	"context"
	"strings"

	"github.com/goliatone/go-formbridge/core"
	glog "github.com/goliatone/go-logger/glog"
)

// Submission is the result of unwrapping one envelope.
type Submission struct {
	// Envelope is the merged body and query payload as received.
	Envelope Fields
	// Effective is the value set searched by the resolver.
	Effective Fields
	// Unwrapped reports whether Effective came from the carrier document.
	Unwrapped bool
}

type UnwrapOption func(*Unwrapper)

func WithCarrierKey(key string) UnwrapOption {
	return func(u *Unwrapper) {
		if key = strings.TrimSpace(key); key != "" {
			u.carrierKey = key
		}
	}
}

func WithUnwrapLogger(logger core.Logger) UnwrapOption {
	return func(u *Unwrapper) {
		if logger != nil {
			u.logger = logger
		}
	}
}

type Unwrapper struct {
	carrierKey string
	logger     core.Logger
}

func NewUnwrapper(opts ...UnwrapOption) *Unwrapper {
	u := &Unwrapper{
		carrierKey: core.DefaultCarrierKey,
		logger:     glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

// Envelope merges body and query fields. Query values win on collision and
// the colliding key keeps its body position.
func Envelope(body Fields, query Fields) Fields {
	return body.Merge(query)
}

// Unwrap promotes the carrier document to the effective submission. A carrier
// that fails to parse is logged and the envelope is used as is.
func (u *Unwrapper) Unwrap(ctx context.Context, envelope Fields) Submission {
	if u == nil {
		u = NewUnwrapper()
	}
	submission := Submission{Envelope: envelope, Effective: envelope}

	carrier, ok := envelope.GetFold(u.carrierKey)
	if !ok {
		return submission
	}
	if carrier.IsComposite() {
		submission.Effective = carrier.Fields()
		submission.Unwrapped = true
		return submission
	}

	// An empty object is a valid document; only a blank carrier is not.
	raw := strings.TrimSpace(carrier.Text())
	document, err := DecodeJSON([]byte(raw))
	if err != nil || raw == "" {
		reason := "blank carrier"
		if err != nil {
			reason = err.Error()
		}
		u.logger.WithContext(ctx).Warn("carrier document could not be parsed, using envelope",
			"carrier_key", u.carrierKey,
			"error", reason,
		)
		return submission
	}
	submission.Effective = document
	submission.Unwrapped = true
	return submission
}
