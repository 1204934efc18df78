// Package forward posts canonical records to the CRM router.
package forward

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
)

const defaultTimeout = 15 * time.Second

type Option func(*Forwarder)

func WithTimeout(timeout time.Duration) Option {
	return func(f *Forwarder) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithHTTPClient sends requests through client, mostly httptest clients.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		if client != nil {
			f.httpClient = client
		}
	}
}

func WithHeader(key string, value string) Option {
	return func(f *Forwarder) {
		if key = strings.TrimSpace(key); key != "" {
			f.headers[key] = value
		}
	}
}

// Forwarder sends each record once. Failures are returned, never retried.
type Forwarder struct {
	routerURL  string
	timeout    time.Duration
	httpClient *http.Client
	headers    map[string]string
	client     *resty.Client
}

func New(routerURL string, opts ...Option) (*Forwarder, error) {
	routerURL = strings.TrimSpace(routerURL)
	if routerURL == "" {
		return nil, core.NotConfiguredError("forwarder", "forward.router_url")
	}
	f := &Forwarder{
		routerURL: routerURL,
		timeout:   defaultTimeout,
		headers:   map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	client := resty.New()
	if f.httpClient != nil {
		client = resty.NewWithClient(f.httpClient)
	}
	client.
		SetTimeout(f.timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	for key, value := range f.headers {
		client.SetHeader(key, value)
	}
	f.client = client
	return f, nil
}

func (f *Forwarder) RouterURL() string {
	return f.routerURL
}

func (f *Forwarder) Forward(ctx context.Context, record core.CanonicalRecord) error {
	if f == nil || f.client == nil {
		return core.NotConfiguredError("forwarder", "forward.router_url")
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(record).
		Post(f.routerURL)
	if err != nil {
		return core.WrapError(err, goerrors.CategoryExternal, "forward: post to crm router failed", map[string]any{
			"form_id": record.FormID,
		})
	}
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return core.NewError("forward: crm router rejected record", goerrors.CategoryExternal, map[string]any{
			"form_id":     record.FormID,
			"status_code": resp.StatusCode(),
			"body":        truncate(resp.String(), 512),
		})
	}
	return nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

var _ core.Forwarder = (*Forwarder)(nil)
