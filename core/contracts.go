package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// FormsService is the externally owned registry of forms and their webhook
// registrations.
type FormsService interface {
	ListForms(ctx context.Context) ([]Form, error)
	ListWebhooks(ctx context.Context, formID string) ([]WebhookRegistration, error)
	AddWebhook(ctx context.Context, formID string, url string) error
	DeleteWebhook(ctx context.Context, formID string, webhookID string) error
}

// Forwarder delivers a canonical record to the CRM router. Calls are made at
// most once per submission.
type Forwarder interface {
	Forward(ctx context.Context, record CanonicalRecord) error
}

type Sweeper interface {
	Sweep(ctx context.Context, req SweepRequest) (SweepReport, error)
}

type Auditor interface {
	Audit(ctx context.Context) (AuditReport, error)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}
