// Package transport executes outbound HTTP requests for API clients and
// wraps failures in go-errors envelopes.
package transport
