package jotform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/devkit"
)

const testKey = "test-key"

func newTestClient(t *testing.T, api *devkit.JotformAPI, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	opts = append([]Option{WithBaseURL(server.URL + "/"), WithHTTPClient(server.Client())}, opts...)
	client, err := NewClient(testKey, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientWebhookLifecycle(t *testing.T) {
	forms := devkit.NewFakeFormsService()
	forms.AddForm(core.Form{ID: "240", Title: "Contract"}, "https://old.example/hook", "https://bridge.example/webhook/jotform")
	client := newTestClient(t, devkit.NewJotformAPI(forms, testKey))
	ctx := context.Background()

	registrations, err := client.ListWebhooks(ctx, "240")
	if err != nil {
		t.Fatalf("list webhooks: %v", err)
	}
	if len(registrations) != 2 || registrations[0].URL != "https://old.example/hook" || registrations[1].URL != "https://bridge.example/webhook/jotform" {
		t.Fatalf("expected registrations in api order, got %#v", registrations)
	}
	if registrations[0].FormID != "240" {
		t.Fatalf("expected form id on registrations")
	}

	if err := client.DeleteWebhook(ctx, "240", registrations[0].WebhookID); err != nil {
		t.Fatalf("delete webhook: %v", err)
	}
	if err := client.AddWebhook(ctx, "240", "https://bridge.example/webhook/jotform?src=a&b=c"); err != nil {
		t.Fatalf("add webhook: %v", err)
	}
	urls := forms.URLs("240")
	if len(urls) != 2 || urls[1] != "https://bridge.example/webhook/jotform?src=a&b=c" {
		t.Fatalf("expected url-encoded webhook to round trip, got %v", urls)
	}
}

func TestClientListWebhooksEmptyList(t *testing.T) {
	forms := devkit.NewFakeFormsService(core.Form{ID: "1"})
	client := newTestClient(t, devkit.NewJotformAPI(forms, testKey))
	registrations, err := client.ListWebhooks(context.Background(), "1")
	if err != nil {
		t.Fatalf("list webhooks: %v", err)
	}
	if len(registrations) != 0 {
		t.Fatalf("expected no registrations, got %#v", registrations)
	}
}

func TestClientListFormsPaginates(t *testing.T) {
	forms := devkit.NewFakeFormsService()
	for index := 0; index < 7; index++ {
		forms.AddForm(core.Form{ID: strconv.Itoa(100 + index), Title: "Form " + strconv.Itoa(index)})
	}
	api := devkit.NewJotformAPI(forms, testKey)
	client := newTestClient(t, api, WithPageSize(3))

	listed, err := client.ListForms(context.Background())
	if err != nil {
		t.Fatalf("list forms: %v", err)
	}
	if len(listed) != 7 || listed[0].ID != "100" || listed[6].ID != "106" {
		t.Fatalf("unexpected forms %#v", listed)
	}
	if listed[0].Status != "ENABLED" {
		t.Fatalf("expected status to be decoded, got %q", listed[0].Status)
	}
	if api.Requests() != 3 {
		t.Fatalf("expected 3 page requests, got %d", api.Requests())
	}
}

func TestClientRejectsBadAPIKey(t *testing.T) {
	forms := devkit.NewFakeFormsService(core.Form{ID: "1"})
	server := httptest.NewServer(devkit.NewJotformAPI(forms, "other-key"))
	defer server.Close()
	client, err := NewClient(testKey, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ListForms(context.Background())
	if !goerrors.IsCategory(err, goerrors.CategoryAuth) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestClientResponseCodeErrorWithOKStatus(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("rest",
		devkit.JSONScript(`{"responseCode":401,"message":"You're not authorized","content":""}`),
	)
	client, err := NewClient(testKey, WithTransport(adapter))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ListWebhooks(context.Background(), "1")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %v", err)
	}
	if rich.Metadata["response_code"] != 401 {
		t.Fatalf("expected response code metadata, got %#v", rich.Metadata)
	}

	requests := adapter.Requests()
	if len(requests) != 1 || requests[0].Headers[APIKeyHeader] != testKey {
		t.Fatalf("expected APIKEY header, got %#v", requests)
	}
	if requests[0].URL != DefaultBaseURL+"/form/1/webhooks" || requests[0].Method != http.MethodGet {
		t.Fatalf("unexpected request %s %s", requests[0].Method, requests[0].URL)
	}
}

func TestClientArrayContentAndStopsOnRepeatedPage(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("rest",
		devkit.JSONScript(`{"responseCode":200,"content":["https://a.example","https://b.example"]}`),
		devkit.JSONScript(`{"responseCode":200,"content":[{"id":"1","title":"A"},{"id":"2","title":"B"}]}`),
	)
	client, _ := NewClient(testKey, WithTransport(adapter), WithPageSize(2))

	registrations, err := client.ListWebhooks(context.Background(), "9")
	if err != nil || len(registrations) != 2 || registrations[1].WebhookID != "1" {
		t.Fatalf("unexpected array parse %#v %v", registrations, err)
	}
	forms, err := client.ListForms(context.Background())
	if err != nil {
		t.Fatalf("list forms: %v", err)
	}
	if len(forms) != 2 {
		t.Fatalf("expected duplicates to be dropped, got %#v", forms)
	}
	if len(adapter.Requests()) != 3 {
		t.Fatalf("expected repeated page to stop paging, got %d requests", len(adapter.Requests()))
	}
}

func TestClientValidation(t *testing.T) {
	if _, err := NewClient(" "); err == nil {
		t.Fatalf("expected missing api key error")
	}
	client, _ := NewClient(testKey, WithTransport(devkit.NewFakeTransportAdapter("rest")))
	if err := client.AddWebhook(context.Background(), "", "https://x"); !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		t.Fatalf("expected bad input for empty form id, got %v", err)
	}
	if err := client.AddWebhook(context.Background(), "1", ""); !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		t.Fatalf("expected bad input for empty url, got %v", err)
	}
	if err := client.DeleteWebhook(context.Background(), "1", " "); !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		t.Fatalf("expected bad input for empty webhook id, got %v", err)
	}
}
