package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/ratelimit"
)

func TestRESTAdapter_SendsHeadersQueryAndBody(t *testing.T) {
	var captured *http.Request
	var capturedBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		_ = r.ParseForm()
		capturedBody = r.PostForm.Get("webhookURL")
		w.Header().Set("X-Trace", "abc")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["APIKEY"] = "secret"
	body, headers := FormBody(url.Values{"webhookURL": {"https://bridge.example/hook"}})

	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  http.MethodPost,
		URL:     server.URL + "/form/1/webhooks",
		Headers: headers,
		Query:   map[string]string{"limit": "10"},
		Body:    body,
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response %d %s", res.StatusCode, res.Body)
	}
	if res.Headers["X-Trace"] != "abc" {
		t.Fatalf("expected flattened headers, got %#v", res.Headers)
	}
	if captured.Header.Get("APIKEY") != "secret" {
		t.Fatalf("expected default header")
	}
	if captured.URL.Query().Get("limit") != "10" {
		t.Fatalf("expected query parameter, got %q", captured.URL.RawQuery)
	}
	if capturedBody != "https://bridge.example/hook" {
		t.Fatalf("expected form body, got %q", capturedBody)
	}
}

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorUpstreamFailure {
		t.Fatalf("expected %q text code, got %q", core.ErrorUpstreamFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), core.TransportRequest{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal go-errors envelope, got %v", err)
	}
}

func TestRESTAdapter_TimeoutIsExternalFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL, Timeout: 50 * time.Millisecond})
	if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
		t.Fatalf("expected external failure, got %v", err)
	}
}

func TestRESTAdapter_LimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.Limiter = NewLimiter(0.001)
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL}); err != nil {
		t.Fatalf("first request should use the initial token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := adapter.Do(ctx, core.TransportRequest{URL: server.URL})
	if !goerrors.IsCategory(err, goerrors.CategoryRateLimit) {
		t.Fatalf("expected rate limit category, got %v", err)
	}
	if NewLimiter(0) != nil {
		t.Fatalf("expected nil limiter for zero rate")
	}
}

func TestRESTAdapter_ThrottleStopsCallsAfter429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.Throttle = ratelimit.NewAdaptivePolicy(nil)

	res, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.StatusCode)
	}
	_, err = adapter.Do(context.Background(), core.TransportRequest{URL: server.URL + "/user/forms"})
	if !goerrors.IsCategory(err, goerrors.CategoryRateLimit) {
		t.Fatalf("expected rate limit category, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected throttled call to stay local, got %d upstream calls", calls.Load())
	}
}

func TestStatusError(t *testing.T) {
	if err := StatusError("jotform: list forms", core.TransportResponse{StatusCode: http.StatusOK}); err != nil {
		t.Fatalf("expected nil for 2xx, got %v", err)
	}
	err := StatusError("jotform: list forms", core.TransportResponse{StatusCode: http.StatusUnauthorized, Body: []byte("bad key")})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if rich.Category != goerrors.CategoryAuth || rich.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected mapping %s %d", rich.Category, rich.Code)
	}
	if rich.Metadata["status_code"] != http.StatusUnauthorized {
		t.Fatalf("expected status metadata, got %#v", rich.Metadata)
	}
	if !goerrors.IsCategory(StatusError("x", core.TransportResponse{StatusCode: 500}), goerrors.CategoryExternal) {
		t.Fatalf("expected external category for 500")
	}
}

func TestRedactedURL(t *testing.T) {
	parsed, _ := url.Parse("https://api.example/forms?apiKey=secret&limit=5")
	got := redactedURL(parsed)
	if got != "https://api.example/forms?apiKey=REDACTED&limit=5" {
		t.Fatalf("unexpected redaction %q", got)
	}
}
