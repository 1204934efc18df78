package core

import (
	"strconv"
	"strings"
	"time"
)

type Form struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

// Label returns a human readable identifier for logs and reports.
func (f Form) Label() string {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return f.ID
	}
	return title + " (" + f.ID + ")"
}

type WebhookRegistration struct {
	FormID    string `json:"form_id"`
	WebhookID string `json:"webhook_id"`
	URL       string `json:"url"`
}

// CanonicalRecord is the fixed contact schema forwarded to the CRM router.
// Every field is always serialized; absence is the empty string.
type CanonicalRecord struct {
	FormID            string `json:"form_id"`
	FormTitle         string `json:"form_title"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	PartyAFirstName   string `json:"party_a_first_name"`
	PartyALastName    string `json:"party_a_last_name"`
	PartyBFirstName   string `json:"party_b_first_name"`
	PartyBLastName    string `json:"party_b_last_name"`
	EventDate         string `json:"event_date"`
	VenueLocation     string `json:"venue_location"`
	ReceptionLocation string `json:"reception_location"`
}

type Policy string

const (
	PolicyAdditive      Policy = "additive"
	PolicyKeepCanonical Policy = "keep_canonical"
	PolicyReset         Policy = "reset"
)

func (p Policy) IsValid() bool {
	switch p {
	case PolicyAdditive, PolicyKeepCanonical, PolicyReset:
		return true
	default:
		return false
	}
}

// ParsePolicy accepts the canonical names plus dashed and upper case spellings.
func ParsePolicy(raw string) (Policy, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	policy := Policy(normalized)
	if !policy.IsValid() {
		return "", newBadInputError("core: invalid reconcile policy "+strconv.Quote(raw), map[string]any{
			"policy": raw,
		})
	}
	return policy, nil
}

type ActionKind string

const (
	ActionAdd    ActionKind = "ADD"
	ActionDelete ActionKind = "DELETE"
)

type Action struct {
	Kind      ActionKind `json:"action"`
	WebhookID string     `json:"webhook_id,omitempty"`
	URL       string     `json:"url"`
}

type Plan struct {
	FormID  string   `json:"form_id"`
	Actions []Action `json:"actions"`
}

func (p Plan) Empty() bool {
	return len(p.Actions) == 0
}

func (p Plan) HasAdd() bool {
	for _, action := range p.Actions {
		if action.Kind == ActionAdd {
			return true
		}
	}
	return false
}

type SweepTrigger string

const (
	SweepTriggerManual   SweepTrigger = "manual"
	SweepTriggerSchedule SweepTrigger = "schedule"
	SweepTriggerStartup  SweepTrigger = "startup"
	SweepTriggerCLI      SweepTrigger = "cli"
)

type SweepRequest struct {
	Policy  Policy
	Trigger SweepTrigger
	DryRun  bool
	// Force makes RESET rebuild forms that are already converged.
	Force bool
}

type FormStatus string

const (
	FormStatusCorrect    FormStatus = "correct"
	FormStatusRegistered FormStatus = "registered"
	FormStatusCorrected  FormStatus = "corrected"
	FormStatusPlanned    FormStatus = "planned"
	FormStatusFailed     FormStatus = "failed"
)

type FormOutcome struct {
	Form    Form       `json:"form"`
	Status  FormStatus `json:"status"`
	Plan    Plan       `json:"plan"`
	Applied []Action   `json:"applied,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type SweepReport struct {
	Policy    Policy        `json:"policy"`
	Trigger   SweepTrigger  `json:"trigger"`
	DryRun    bool          `json:"dry_run"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Forms     []FormOutcome `json:"forms"`
}

func (r SweepReport) formsWithStatus(status FormStatus) []Form {
	out := make([]Form, 0)
	for _, outcome := range r.Forms {
		if outcome.Status == status {
			out = append(out, outcome.Form)
		}
	}
	return out
}

// Registered lists forms that gained the canonical registration in this sweep.
func (r SweepReport) Registered() []Form {
	return r.formsWithStatus(FormStatusRegistered)
}

func (r SweepReport) AlreadyCorrect() []Form {
	return r.formsWithStatus(FormStatusCorrect)
}

// Corrected lists forms that only needed deletions.
func (r SweepReport) Corrected() []Form {
	return r.formsWithStatus(FormStatusCorrected)
}

func (r SweepReport) Failed() []FormOutcome {
	out := make([]FormOutcome, 0)
	for _, outcome := range r.Forms {
		if outcome.Status == FormStatusFailed {
			out = append(out, outcome)
		}
	}
	return out
}

func (r SweepReport) ActionCount() int {
	total := 0
	for _, outcome := range r.Forms {
		total += len(outcome.Applied)
	}
	return total
}

type FormAudit struct {
	Form             Form                  `json:"form"`
	Registrations    []WebhookRegistration `json:"registrations"`
	CanonicalPresent bool                  `json:"canonical_present"`
	Converged        bool                  `json:"converged"`
	Error            string                `json:"error,omitempty"`
}

type AuditReport struct {
	CanonicalURL string      `json:"canonical_url"`
	Forms        []FormAudit `json:"forms"`
}

type SubmissionStatus string

const (
	SubmissionForwarded SubmissionStatus = "forwarded"
	SubmissionSkipped   SubmissionStatus = "skipped"
	SubmissionFailed    SubmissionStatus = "failed"
)

type SubmissionResult struct {
	DeliveryID string           `json:"delivery_id"`
	Status     SubmissionStatus `json:"status"`
	Unwrapped  bool             `json:"unwrapped"`
	Record     CanonicalRecord  `json:"record"`
	Reason     string           `json:"reason,omitempty"`
}
