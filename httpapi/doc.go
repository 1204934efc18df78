// Package httpapi exposes the bridge over HTTP with gin.
//
// Routes:
//
//	POST /webhook/jotform  acknowledge a submission, process it in the background
//	GET  /resync           run one reconciliation sweep
//	GET  /webhooks         audit registrations per form
//	GET  /healthz          liveness
//	GET  /metrics          prometheus exposition
package httpapi
