package normalize

import (
	"strings"

	"github.com/goliatone/go-formbridge/core"
)

// Rule fills one canonical field from the first non-empty lookup.
type Rule struct {
	Field   string
	Lookups []Lookup
	Default string
	// EnvelopeFallback also searches the original envelope when the
	// effective submission came from the carrier document.
	EnvelopeFallback bool
	assign           func(*core.CanonicalRecord, string)
}

// DateRule assembles M/D/Y from per-part lookups. Any missing part empties the
// whole field.
type DateRule struct {
	Field   string
	Sources []string
	assign  func(*core.CanonicalRecord, string)
}

var (
	partyAFirst = []Lookup{LSub("bridesName", "first"), LSub("name", "first")}
	partyALast  = []Lookup{LSub("bridesName", "last"), LSub("name", "last")}
)

// DefaultRules returns the lookup table for the contract forms.
func DefaultRules(defaultTitle string) []Rule {
	return []Rule{
		{Field: "form_id", Lookups: []Lookup{L("formID")}, EnvelopeFallback: true,
			assign: func(r *core.CanonicalRecord, v string) { r.FormID = v }},
		{Field: "form_title", Lookups: []Lookup{L("formTitle")}, EnvelopeFallback: true, Default: defaultTitle,
			assign: func(r *core.CanonicalRecord, v string) { r.FormTitle = v }},
		{Field: "first_name", Lookups: partyAFirst,
			assign: func(r *core.CanonicalRecord, v string) { r.FirstName = v }},
		{Field: "last_name", Lookups: partyALast,
			assign: func(r *core.CanonicalRecord, v string) { r.LastName = v }},
		{Field: "email", Lookups: []Lookup{L("email")},
			assign: func(r *core.CanonicalRecord, v string) { r.Email = v }},
		{Field: "phone", Lookups: []Lookup{L("phoneNumber"), L("phone")},
			assign: func(r *core.CanonicalRecord, v string) { r.Phone = v }},
		{Field: "party_a_first_name", Lookups: partyAFirst,
			assign: func(r *core.CanonicalRecord, v string) { r.PartyAFirstName = v }},
		{Field: "party_a_last_name", Lookups: partyALast,
			assign: func(r *core.CanonicalRecord, v string) { r.PartyALastName = v }},
		{Field: "party_b_first_name", Lookups: []Lookup{LSub("groomsName", "first")},
			assign: func(r *core.CanonicalRecord, v string) { r.PartyBFirstName = v }},
		{Field: "party_b_last_name", Lookups: []Lookup{LSub("groomsName", "last")},
			assign: func(r *core.CanonicalRecord, v string) { r.PartyBLastName = v }},
		{Field: "venue_location", Lookups: []Lookup{L("weddingCeremony"), L("venue")},
			assign: func(r *core.CanonicalRecord, v string) { r.VenueLocation = v }},
		{Field: "reception_location", Lookups: []Lookup{L("weddingReception"), L("reception")},
			assign: func(r *core.CanonicalRecord, v string) { r.ReceptionLocation = v }},
	}
}

func DefaultDateRule() DateRule {
	return DateRule{
		Field:   "event_date",
		Sources: []string{"weddingDate", "eventDate"},
		assign:  func(r *core.CanonicalRecord, v string) { r.EventDate = v },
	}
}

type BuilderOption func(*Builder)

func WithDefaultFormTitle(title string) BuilderOption {
	return func(b *Builder) {
		if title = strings.TrimSpace(title); title != "" {
			b.rules = DefaultRules(title)
		}
	}
}

// Builder maps a Submission to a CanonicalRecord.
type Builder struct {
	rules []Rule
	date  DateRule
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		rules: DefaultRules(core.DefaultFormTitle),
		date:  DefaultDateRule(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Builder) Build(submission Submission) core.CanonicalRecord {
	if b == nil {
		b = NewBuilder()
	}
	record := core.CanonicalRecord{}
	for _, rule := range b.rules {
		value := FirstNonEmpty(submission.Effective, rule.Lookups...)
		if value == "" && rule.EnvelopeFallback && submission.Unwrapped {
			value = FirstNonEmpty(submission.Envelope, rule.Lookups...)
		}
		if value == "" {
			value = rule.Default
		}
		if rule.assign != nil {
			rule.assign(&record, value)
		}
	}
	if b.date.assign != nil {
		b.date.assign(&record, b.date.resolve(submission.Effective))
	}
	return record
}

func (r DateRule) resolve(fields Fields) string {
	part := func(subKey string) string {
		lookups := make([]Lookup, 0, len(r.Sources))
		for _, source := range r.Sources {
			lookups = append(lookups, LSub(source, subKey))
		}
		return FirstNonEmpty(fields, lookups...)
	}
	month, day, year := part("month"), part("day"), part("year")
	if month == "" || day == "" || year == "" {
		return ""
	}
	return month + "/" + day + "/" + year
}
