package devkit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formbridge/core"
)

type Op string

const (
	OpListForms     Op = "list_forms"
	OpListWebhooks  Op = "list_webhooks"
	OpAddWebhook    Op = "add_webhook"
	OpDeleteWebhook Op = "delete_webhook"
)

type Call struct {
	Op        Op
	FormID    string
	WebhookID string
	URL       string
}

// FakeFormsService keeps forms and webhook registrations in memory.
type FakeFormsService struct {
	mu       sync.Mutex
	forms    []core.Form
	hooks    map[string][]core.WebhookRegistration
	nextID   int
	failures map[string]error
	calls    []Call
	gate     <-chan struct{}
}

func NewFakeFormsService(forms ...core.Form) *FakeFormsService {
	svc := &FakeFormsService{
		hooks:    map[string][]core.WebhookRegistration{},
		failures: map[string]error{},
		nextID:   1000,
	}
	for _, form := range forms {
		svc.AddForm(form)
	}
	return svc
}

// AddForm registers a form with optional pre-existing webhook URLs.
func (s *FakeFormsService) AddForm(form core.Form, urls ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = append(s.forms, form)
	for _, url := range urls {
		s.hooks[form.ID] = append(s.hooks[form.ID], s.newRegistrationLocked(form.ID, url))
	}
}

// FailOn makes op fail for formID. An empty formID matches every form.
func (s *FakeFormsService) FailOn(op Op, formID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, failureKey(op, formID))
		return
	}
	s.failures[failureKey(op, formID)] = err
}

// Gate blocks ListForms until gate is closed or the caller's context ends.
func (s *FakeFormsService) Gate(gate <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
}

func (s *FakeFormsService) ListForms(ctx context.Context) ([]core.Form, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: OpListForms})
	if err := s.failureLocked(OpListForms, ""); err != nil {
		return nil, err
	}
	return append([]core.Form(nil), s.forms...), nil
}

func (s *FakeFormsService) ListWebhooks(_ context.Context, formID string) ([]core.WebhookRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: OpListWebhooks, FormID: formID})
	if err := s.failureLocked(OpListWebhooks, formID); err != nil {
		return nil, err
	}
	return append([]core.WebhookRegistration{}, s.hooks[formID]...), nil
}

func (s *FakeFormsService) AddWebhook(_ context.Context, formID string, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: OpAddWebhook, FormID: formID, URL: url})
	if err := s.failureLocked(OpAddWebhook, formID); err != nil {
		return err
	}
	if !s.hasFormLocked(formID) {
		return fmt.Errorf("devkit: form %s not found", formID)
	}
	s.hooks[formID] = append(s.hooks[formID], s.newRegistrationLocked(formID, url))
	return nil
}

func (s *FakeFormsService) DeleteWebhook(_ context.Context, formID string, webhookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: OpDeleteWebhook, FormID: formID, WebhookID: webhookID})
	if err := s.failureLocked(OpDeleteWebhook, formID); err != nil {
		return err
	}
	current := s.hooks[formID]
	for index, registration := range current {
		if registration.WebhookID == webhookID {
			s.hooks[formID] = append(append([]core.WebhookRegistration{}, current[:index]...), current[index+1:]...)
			return nil
		}
	}
	return fmt.Errorf("devkit: webhook %s not found on form %s", webhookID, formID)
}

// URLs returns the registered URLs of a form in registration order.
func (s *FakeFormsService) URLs(formID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.hooks[formID]))
	for _, registration := range s.hooks[formID] {
		out = append(out, registration.URL)
	}
	return out
}

func (s *FakeFormsService) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// MutationCount counts ADD and DELETE calls, successful or not.
func (s *FakeFormsService) MutationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, call := range s.calls {
		if call.Op == OpAddWebhook || call.Op == OpDeleteWebhook {
			total++
		}
	}
	return total
}

func (s *FakeFormsService) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *FakeFormsService) newRegistrationLocked(formID string, url string) core.WebhookRegistration {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	return core.WebhookRegistration{FormID: formID, WebhookID: id, URL: url}
}

func (s *FakeFormsService) hasFormLocked(formID string) bool {
	for _, form := range s.forms {
		if form.ID == formID {
			return true
		}
	}
	return false
}

func (s *FakeFormsService) failureLocked(op Op, formID string) error {
	if err, ok := s.failures[failureKey(op, formID)]; ok {
		return err
	}
	if err, ok := s.failures[failureKey(op, "")]; ok {
		return err
	}
	return nil
}

func failureKey(op Op, formID string) string {
	return string(op) + ":" + strings.TrimSpace(formID)
}

var _ core.FormsService = (*FakeFormsService)(nil)
