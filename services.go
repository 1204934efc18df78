package formbridge

import (
	"context"

	"github.com/goliatone/go-formbridge/core"
)

type Config = core.Config

type CanonicalRecord = core.CanonicalRecord
type Policy = core.Policy
type SweepRequest = core.SweepRequest
type SweepReport = core.SweepReport
type AuditReport = core.AuditReport

const (
	PolicyAdditive      = core.PolicyAdditive
	PolicyKeepCanonical = core.PolicyKeepCanonical
	PolicyReset         = core.PolicyReset
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig reads .env files and the process environment, then layers
// runtime overrides such as CLI flags on top.
func LoadConfig(ctx context.Context, envFiles []string, runtime Config) (Config, error) {
	return core.ResolveConfig(ctx, core.NewEnvConfigProvider(envFiles...), core.GoOptionsResolver{}, runtime)
}
