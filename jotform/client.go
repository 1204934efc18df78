// Package jotform is a client for the subset of the Jotform REST API that
// manages forms and their webhook registrations.
package jotform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/ratelimit"
	"github.com/goliatone/go-formbridge/transport"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL  = core.DefaultFormsBaseURL
	APIKeyHeader    = "APIKEY"
	defaultPageSize = 100
	maxPages        = 1000
)

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithTransport(adapter core.TransportAdapter) Option {
	return func(c *Client) {
		if adapter != nil {
			c.transport = adapter
		}
	}
}

func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit caps outbound calls per second. Zero disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		c.rateLimit = perSecond
	}
}

func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(c *Client) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// Client implements core.FormsService against the Jotform API.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	rateLimit  float64
	pageSize   int
	httpClient transport.HTTPDoer
	transport  core.TransportAdapter
	logger     core.Logger
	metrics    core.MetricsRecorder
	observer   *core.Observer
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, core.NotConfiguredError("jotform client", "forms.api_key")
	}
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		pageSize: defaultPageSize,
		logger:   glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.transport == nil {
		adapter := transport.NewRESTAdapter(c.httpClient)
		adapter.Limiter = transport.NewLimiter(c.rateLimit)
		adapter.Throttle = ratelimit.NewAdaptivePolicy(nil)
		c.transport = adapter
	}
	c.observer = core.NewObserver(core.DefaultServiceName, c.logger, c.metrics)
	return c, nil
}

// ListForms pages through /user/forms until a short or repeated page.
func (c *Client) ListForms(ctx context.Context) ([]core.Form, error) {
	forms := []core.Form{}
	seen := map[string]bool{}
	for page := 0; page < maxPages; page++ {
		offset := page * c.pageSize
		body, err := c.call(ctx, "list_forms", core.TransportRequest{
			Method: http.MethodGet,
			URL:    c.baseURL + "/user/forms",
			Query: map[string]string{
				"limit":  strconv.Itoa(c.pageSize),
				"offset": strconv.Itoa(offset),
			},
		}, map[string]any{"offset": offset})
		if err != nil {
			return nil, err
		}
		content := gjson.GetBytes(body, "content")
		count, fresh := 0, 0
		content.ForEach(func(_, item gjson.Result) bool {
			count++
			id := strings.TrimSpace(item.Get("id").String())
			if id == "" || seen[id] {
				return true
			}
			seen[id] = true
			fresh++
			forms = append(forms, core.Form{
				ID:     id,
				Title:  item.Get("title").String(),
				Status: item.Get("status").String(),
			})
			return true
		})
		// A server that ignores offset repeats the same page.
		if count < c.pageSize || fresh == 0 {
			return forms, nil
		}
	}
	return forms, nil
}

// ListWebhooks returns a form's registrations in the order the API lists them.
func (c *Client) ListWebhooks(ctx context.Context, formID string) ([]core.WebhookRegistration, error) {
	formID, err := requireFormID(formID)
	if err != nil {
		return nil, err
	}
	body, err := c.call(ctx, "list_webhooks", core.TransportRequest{
		Method: http.MethodGet,
		URL:    c.formURL(formID),
	}, map[string]any{"form_id": formID})
	if err != nil {
		return nil, err
	}
	return parseWebhooks(formID, gjson.GetBytes(body, "content")), nil
}

func (c *Client) AddWebhook(ctx context.Context, formID string, webhookURL string) error {
	formID, err := requireFormID(formID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(webhookURL) == "" {
		return jotformError("jotform: webhook url is required", goerrors.CategoryBadInput, map[string]any{"form_id": formID})
	}
	payload, headers := transport.FormBody(url.Values{"webhookURL": {webhookURL}})
	_, err = c.call(ctx, "add_webhook", core.TransportRequest{
		Method:  http.MethodPost,
		URL:     c.formURL(formID),
		Headers: headers,
		Body:    payload,
	}, map[string]any{"form_id": formID, "url": webhookURL})
	return err
}

func (c *Client) DeleteWebhook(ctx context.Context, formID string, webhookID string) error {
	formID, err := requireFormID(formID)
	if err != nil {
		return err
	}
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return jotformError("jotform: webhook id is required", goerrors.CategoryBadInput, map[string]any{"form_id": formID})
	}
	_, err = c.call(ctx, "delete_webhook", core.TransportRequest{
		Method: http.MethodDelete,
		URL:    c.formURL(formID) + "/" + url.PathEscape(webhookID),
	}, map[string]any{"form_id": formID, "webhook_id": webhookID})
	return err
}

func (c *Client) call(ctx context.Context, operation string, req core.TransportRequest, fields map[string]any) (body []byte, err error) {
	startedAt := time.Now()
	defer func() {
		c.observer.ObserveOperation(ctx, startedAt, "jotform_"+operation, err, fields)
	}()

	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers[APIKeyHeader] = c.apiKey
	req.Headers["Accept"] = "application/json"
	if req.Timeout == 0 {
		req.Timeout = c.timeout
	}

	res, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := transport.StatusError("jotform: "+operation, res); err != nil {
		return nil, err
	}
	if err := checkResponseCode(operation, res.Body); err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (c *Client) formURL(formID string) string {
	return c.baseURL + "/form/" + url.PathEscape(formID) + "/webhooks"
}

// parseWebhooks accepts the object form {"0":"url"} and an array of URLs. An
// empty list or null yields no registrations.
func parseWebhooks(formID string, content gjson.Result) []core.WebhookRegistration {
	registrations := []core.WebhookRegistration{}
	switch {
	case content.IsObject():
		content.ForEach(func(key, value gjson.Result) bool {
			registrations = append(registrations, core.WebhookRegistration{
				FormID:    formID,
				WebhookID: key.String(),
				URL:       value.String(),
			})
			return true
		})
	case content.IsArray():
		for index, value := range content.Array() {
			registrations = append(registrations, core.WebhookRegistration{
				FormID:    formID,
				WebhookID: strconv.Itoa(index),
				URL:       value.String(),
			})
		}
	}
	return registrations
}

func checkResponseCode(operation string, body []byte) error {
	code := gjson.GetBytes(body, "responseCode")
	if !code.Exists() {
		return nil
	}
	value := int(code.Int())
	if value >= 200 && value < 300 {
		return nil
	}
	return jotformError("jotform: "+operation+" rejected", goerrors.CategoryExternal, map[string]any{
		"response_code": value,
		"message":       gjson.GetBytes(body, "message").String(),
	})
}

func requireFormID(formID string) (string, error) {
	formID = strings.TrimSpace(formID)
	if formID == "" {
		return "", jotformError("jotform: form id is required", goerrors.CategoryBadInput, nil)
	}
	return formID, nil
}

func jotformError(message string, category goerrors.Category, metadata map[string]any) error {
	return core.NewError(message, category, metadata)
}

var _ core.FormsService = (*Client)(nil)
