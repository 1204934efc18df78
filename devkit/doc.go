// Package devkit provides in-memory collaborators for tests and local runs:
// a forms service, a Jotform-compatible HTTP API backed by it, a CRM
// forwarder, a scripted transport and a capturing logger.
package devkit
