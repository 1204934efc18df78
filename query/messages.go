package query

import "strings"

const TypeAuditWebhooks = "formbridge.query.webhooks.audit"

// AuditWebhooksMessage lists registrations per form. DriftedOnly keeps forms
// that are not in the converged state.
type AuditWebhooksMessage struct {
	FormID      string
	DriftedOnly bool
}

func (AuditWebhooksMessage) Type() string { return TypeAuditWebhooks }

func (m AuditWebhooksMessage) Validate() error {
	return nil
}

func (m AuditWebhooksMessage) formID() string {
	return strings.TrimSpace(m.FormID)
}
