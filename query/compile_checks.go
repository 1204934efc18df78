package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-formbridge/core"
)

var (
	_ gocmd.Querier[AuditWebhooksMessage, core.AuditReport] = (*AuditWebhooksQuery)(nil)
)
