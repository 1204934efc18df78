package httpapi

import "github.com/goliatone/go-formbridge/core"

type FormRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type FailedForm struct {
	FormRef
	Error string `json:"error"`
}

// SweepSummary is the /resync response body.
type SweepSummary struct {
	Policy         core.Policy  `json:"policy"`
	DryRun         bool         `json:"dry_run,omitempty"`
	Registered     []FormRef    `json:"registered"`
	AlreadyCorrect []FormRef    `json:"already_correct"`
	Corrected      []FormRef    `json:"corrected"`
	Planned        []FormRef    `json:"planned,omitempty"`
	Failed         []FailedForm `json:"failed"`
	Actions        int          `json:"actions"`
	DurationMS     int64        `json:"duration_ms"`
}

func NewSweepSummary(report core.SweepReport) SweepSummary {
	summary := SweepSummary{
		Policy:         report.Policy,
		DryRun:         report.DryRun,
		Registered:     refs(report.Registered()),
		AlreadyCorrect: refs(report.AlreadyCorrect()),
		Corrected:      refs(report.Corrected()),
		Failed:         []FailedForm{},
		Actions:        report.ActionCount(),
		DurationMS:     report.Duration.Milliseconds(),
	}
	for _, outcome := range report.Forms {
		if outcome.Status == core.FormStatusPlanned {
			summary.Planned = append(summary.Planned, FormRef{ID: outcome.Form.ID, Title: outcome.Form.Title})
		}
	}
	for _, outcome := range report.Failed() {
		summary.Failed = append(summary.Failed, FailedForm{
			FormRef: FormRef{ID: outcome.Form.ID, Title: outcome.Form.Title},
			Error:   outcome.Error,
		})
	}
	return summary
}

func refs(forms []core.Form) []FormRef {
	out := make([]FormRef, 0, len(forms))
	for _, form := range forms {
		out = append(out, FormRef{ID: form.ID, Title: form.Title})
	}
	return out
}
