// Package core holds the bridge's domain types, collaborator contracts,
// configuration and error envelopes. Adapters depend on core; core depends on
// no adapter.
package core
