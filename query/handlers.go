package query

import (
	"context"

	"github.com/goliatone/go-formbridge/core"
)

type AuditWebhooksQuery struct {
	auditor core.Auditor
}

func NewAuditWebhooksQuery(auditor core.Auditor) *AuditWebhooksQuery {
	return &AuditWebhooksQuery{auditor: auditor}
}

func (q *AuditWebhooksQuery) Query(ctx context.Context, msg AuditWebhooksMessage) (core.AuditReport, error) {
	if q == nil || q.auditor == nil {
		return core.AuditReport{}, queryDependencyError("query: webhook auditor is required")
	}
	report, err := q.auditor.Audit(ctx)
	if err != nil {
		return core.AuditReport{}, err
	}
	formID := msg.formID()
	if formID == "" && !msg.DriftedOnly {
		return report, nil
	}
	filtered := make([]core.FormAudit, 0, len(report.Forms))
	for _, audit := range report.Forms {
		if formID != "" && audit.Form.ID != formID {
			continue
		}
		if msg.DriftedOnly && audit.Converged {
			continue
		}
		filtered = append(filtered, audit)
	}
	report.Forms = filtered
	return report, nil
}
