package inbound

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
	"github.com/goliatone/go-formbridge/devkit"
	"github.com/goliatone/go-formbridge/normalize"
)

func TestReadEnvelope_QueryOverridesBody(t *testing.T) {
	form := url.Values{}
	form.Set("formID", "body-form")
	form.Set("formTitle", "Contract")
	req := httptest.NewRequest(http.MethodPost, "/webhook/jotform?formID=query-form", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	envelope, err := ReadEnvelope(req, 1<<20)
	if err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	value, ok := envelope.Get("formID")
	if !ok || value.Text() != "query-form" {
		t.Fatalf("expected query value to win, got %q", value.Text())
	}
	if keys := envelope.Keys(); keys[0] != "formID" {
		t.Fatalf("expected colliding key to keep body position, got %v", keys)
	}
}

func TestReadEnvelope_Multipart(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("formID", "77")
	_ = writer.WriteField("rawRequest", `{"q3_email":"a@b.com"}`)
	part, err := writer.CreateFormFile("upload", "contract.pdf")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	_, _ = part.Write([]byte("%PDF"))
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook/jotform", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	envelope, err := ReadEnvelope(req, 1<<20)
	if err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	if envelope.Len() != 2 {
		t.Fatalf("expected file part to be ignored, got keys %v", envelope.Keys())
	}
}

func TestReadEnvelope_RejectsOversizedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/jotform", strings.NewReader(strings.Repeat("a", 64)))
	_, err := ReadEnvelope(req, 16)
	if err == nil {
		t.Fatalf("expected size limit error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		t.Fatalf("expected bad input category, got %v", err)
	}
}

func contractEnvelope(email string) normalize.Fields {
	raw := `{"q1_bridesName":{"first":"Ana","last":"Diaz"},"q2_groomsName":{"first":"Ben","last":"Cole"},"q3_email":"` + email + `","q4_weddingDate":{"month":"06","day":"14","year":"2025"}}`
	return normalize.Fields{}.
		Set("formID", normalize.Scalar("555")).
		Set("formTitle", normalize.Scalar("Wedding Contract")).
		Set("rawRequest", normalize.Scalar(raw))
}

func TestProcessor_ForwardsRecord(t *testing.T) {
	forwarder := devkit.NewFakeForwarder()
	processor := NewProcessor(forwarder, WithIDGenerator(func() string { return "delivery-1" }))

	result := processor.Process(context.Background(), contractEnvelope("ana@example.com"))
	if result.Status != core.SubmissionForwarded {
		t.Fatalf("expected forwarded, got %q (%s)", result.Status, result.Reason)
	}
	if result.DeliveryID != "delivery-1" || !result.Unwrapped {
		t.Fatalf("unexpected result metadata: %+v", result)
	}
	records := forwarder.Records()
	if len(records) != 1 {
		t.Fatalf("expected one forwarded record, got %d", len(records))
	}
	record := records[0]
	if record.FormID != "555" || record.FormTitle != "Wedding Contract" {
		t.Fatalf("expected envelope fallback for form fields, got %+v", record)
	}
	if record.FirstName != "Ana" || record.PartyBLastName != "Cole" || record.EventDate != "06/14/2025" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestProcessor_SkipsWithoutEmail(t *testing.T) {
	forwarder := devkit.NewFakeForwarder()
	logger := devkit.NewCaptureLogger()
	processor := NewProcessor(forwarder, WithObserver(core.NewObserver("formbridge", logger, nil)))

	result := processor.Process(context.Background(), contractEnvelope(""))
	if result.Status != core.SubmissionSkipped || result.Reason != SkipReasonNoEmail {
		t.Fatalf("expected missing email skip, got %+v", result)
	}
	if len(forwarder.Records()) != 0 {
		t.Fatalf("expected nothing forwarded")
	}
	if !logger.Has("warn", "submission not forwarded") {
		t.Fatalf("expected skip to be logged")
	}

	relaxed := NewProcessor(forwarder, WithRequireEmail(false))
	if got := relaxed.Process(context.Background(), contractEnvelope("")); got.Status != core.SubmissionForwarded {
		t.Fatalf("expected forward when email not required, got %q", got.Status)
	}
}

func TestProcessor_SkipsWithoutForwarder(t *testing.T) {
	result := NewProcessor(nil).Process(context.Background(), contractEnvelope("ana@example.com"))
	if result.Status != core.SubmissionSkipped || result.Reason != SkipReasonNoRouter {
		t.Fatalf("expected router skip, got %+v", result)
	}
}

func TestProcessor_ForwardFailureIsReported(t *testing.T) {
	forwarder := devkit.NewFakeForwarder()
	forwarder.FailWith(errors.New("crm down"))

	result := NewProcessor(forwarder).Process(context.Background(), contractEnvelope("ana@example.com"))
	if result.Status != core.SubmissionFailed {
		t.Fatalf("expected failed status, got %q", result.Status)
	}
	if !strings.Contains(result.Reason, "crm down") {
		t.Fatalf("expected failure reason, got %q", result.Reason)
	}
}

func TestReceiver_SubmitDoesNotWaitForForwarding(t *testing.T) {
	gate := make(chan struct{})
	forwarder := devkit.NewFakeForwarder()
	forwarder.Gate(gate)
	results := make(chan core.SubmissionResult, 1)
	receiver := NewReceiver(NewProcessor(forwarder), WithResultHook(func(result core.SubmissionResult) {
		results <- result
	}))

	ctx, cancel := context.WithCancel(context.Background())
	id := receiver.Submit(ctx, contractEnvelope("ana@example.com"))
	cancel()
	if id == "" {
		t.Fatalf("expected delivery id")
	}
	if receiver.InFlight() != 1 {
		t.Fatalf("expected submission in flight")
	}

	close(gate)
	select {
	case result := <-results:
		if result.Status != core.SubmissionForwarded || result.DeliveryID != id {
			t.Fatalf("expected request cancellation not to affect processing, got %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for submission")
	}
	if err := receiver.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestReceiver_HangingCRMIsBoundedByTimeout(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	forwarder := devkit.NewFakeForwarder()
	forwarder.Gate(gate)
	results := make(chan core.SubmissionResult, 1)
	receiver := NewReceiver(
		NewProcessor(forwarder),
		WithProcessTimeout(30*time.Millisecond),
		WithResultHook(func(result core.SubmissionResult) { results <- result }),
	)

	receiver.Submit(context.Background(), contractEnvelope("ana@example.com"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := receiver.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	result := <-results
	if result.Status != core.SubmissionFailed {
		t.Fatalf("expected timeout failure, got %+v", result)
	}
}

func TestReceiver_DrainHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	forwarder := devkit.NewFakeForwarder()
	forwarder.Gate(gate)
	receiver := NewReceiver(NewProcessor(forwarder), WithProcessTimeout(time.Minute))

	receiver.Submit(context.Background(), contractEnvelope("ana@example.com"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := receiver.Drain(ctx)
	if err == nil {
		t.Fatalf("expected drain to stop at context deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestReadEnvelope_MalformedQueryKeepsBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/jotform?formID=%zz", strings.NewReader(`{"formTitle":"Contract","email":"ana@example.com"}`))
	req.Header.Set("Content-Type", "application/json")

	envelope, err := ReadEnvelope(req, 1<<20)
	if !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		t.Fatalf("expected bad input error for the query, got %v", err)
	}
	if got := normalize.Resolve(envelope, "email", ""); got != "ana@example.com" {
		t.Fatalf("expected body fields to survive a bad query, got keys %v", envelope.Keys())
	}
}

func TestReadEnvelope_MalformedBodyKeepsQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/jotform?formID=9", strings.NewReader(`{"broken":`))
	req.Header.Set("Content-Type", "application/json")

	envelope, err := ReadEnvelope(req, 1<<20)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if got := normalize.Resolve(envelope, "formID", ""); got != "9" {
		t.Fatalf("expected query fields to survive a bad body, got keys %v", envelope.Keys())
	}
}

func TestReadDelivery_DoesNotDecode(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/jotform?formID=%zz", strings.NewReader(`{"broken":`))
	req.Header.Set("Content-Type", "application/json")

	delivery, err := ReadDelivery(req, 1<<20)
	if err != nil {
		t.Fatalf("reading a delivery should not decode it, got %v", err)
	}
	if delivery.RawQuery != "formID=%zz" || string(delivery.Body) != `{"broken":` {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
}

func TestReceiver_SubmitDeliveryDecodesInBackground(t *testing.T) {
	forwarder := devkit.NewFakeForwarder()
	results := make(chan core.SubmissionResult, 1)
	receiver := NewReceiver(NewProcessor(forwarder), WithResultHook(func(result core.SubmissionResult) {
		results <- result
	}))

	receiver.SubmitDelivery(context.Background(), Delivery{
		ContentType: "application/json",
		RawQuery:    "formID=777",
		Body:        []byte(`{"q3_email":"ana@example.com","formID":"body"}`),
	})
	select {
	case result := <-results:
		if result.Status != core.SubmissionForwarded {
			t.Fatalf("expected forwarded, got %+v", result)
		}
		if result.Record.FormID != "777" || result.Record.Email != "ana@example.com" {
			t.Fatalf("unexpected record %+v", result.Record)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for submission")
	}
}

// blockingForwarder holds its caller until release closes, whatever the
// context says.
type blockingForwarder struct {
	release chan struct{}
}

func (f blockingForwarder) Forward(context.Context, core.CanonicalRecord) error {
	<-f.release
	return nil
}

func TestReceiver_MaxConcurrencyBoundsProcessing(t *testing.T) {
	forwarder := blockingForwarder{release: make(chan struct{})}
	results := make(chan core.SubmissionResult, 2)
	receiver := NewReceiver(
		NewProcessor(forwarder),
		WithMaxConcurrency(1),
		WithProcessTimeout(50*time.Millisecond),
		WithResultHook(func(result core.SubmissionResult) { results <- result }),
	)

	first := receiver.Submit(context.Background(), contractEnvelope("first@example.com"))
	time.Sleep(10 * time.Millisecond)
	receiver.Submit(context.Background(), contractEnvelope("second@example.com"))

	select {
	case result := <-results:
		if result.DeliveryID == first {
			t.Fatalf("expected the waiting submission to finish first, got %+v", result)
		}
		if result.Status != core.SubmissionSkipped || result.Reason != SkipReasonSaturated {
			t.Fatalf("expected saturated skip, got %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the saturated submission")
	}

	close(forwarder.release)
	if err := receiver.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result := <-results; result.DeliveryID != first || result.Status != core.SubmissionForwarded {
		t.Fatalf("expected first submission forwarded, got %+v", result)
	}
}
