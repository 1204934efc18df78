package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults < loaded < runtime. Runtime values only
// override when set, so CLI flags win without clobbering env configuration.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, true)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig loads configuration through provider and layers runtime overrides on top.
func ResolveConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	set := func(section string, key string, value any, present bool) {
		if !includeZero && !present {
			return
		}
		if section == "" {
			layer[key] = value
			return
		}
		nested, ok := layer[section].(map[string]any)
		if !ok {
			nested = map[string]any{}
			layer[section] = nested
		}
		nested[key] = value
	}

	set("", "service_name", cfg.ServiceName, strings.TrimSpace(cfg.ServiceName) != "")

	set("server", "port", cfg.Server.Port, cfg.Server.Port != 0)
	set("server", "shutdown_timeout", cfg.Server.ShutdownTimeout, cfg.Server.ShutdownTimeout != 0)

	set("forms", "api_key", cfg.Forms.APIKey, strings.TrimSpace(cfg.Forms.APIKey) != "")
	set("forms", "base_url", cfg.Forms.BaseURL, strings.TrimSpace(cfg.Forms.BaseURL) != "")
	set("forms", "timeout", cfg.Forms.Timeout, cfg.Forms.Timeout != 0)
	set("forms", "rate_limit", cfg.Forms.RateLimit, cfg.Forms.RateLimit != 0)
	set("forms", "page_size", cfg.Forms.PageSize, cfg.Forms.PageSize != 0)

	set("forward", "router_url", cfg.Forward.RouterURL, strings.TrimSpace(cfg.Forward.RouterURL) != "")
	set("forward", "timeout", cfg.Forward.Timeout, cfg.Forward.Timeout != 0)
	set("forward", "require_email", cfg.Forward.RequireEmail, cfg.Forward.RequireEmail)

	set("reconcile", "canonical_url", cfg.Reconcile.CanonicalURL, strings.TrimSpace(cfg.Reconcile.CanonicalURL) != "")
	set("reconcile", "policy", cfg.Reconcile.Policy, strings.TrimSpace(cfg.Reconcile.Policy) != "")
	set("reconcile", "schedule", cfg.Reconcile.Schedule, strings.TrimSpace(cfg.Reconcile.Schedule) != "")
	set("reconcile", "concurrency", cfg.Reconcile.Concurrency, cfg.Reconcile.Concurrency != 0)
	set("reconcile", "run_on_start", cfg.Reconcile.RunOnStart, cfg.Reconcile.RunOnStart)

	set("inbound", "carrier_key", cfg.Inbound.CarrierKey, strings.TrimSpace(cfg.Inbound.CarrierKey) != "")
	set("inbound", "process_timeout", cfg.Inbound.ProcessTimeout, cfg.Inbound.ProcessTimeout != 0)
	set("inbound", "max_body_bytes", cfg.Inbound.MaxBodyBytes, cfg.Inbound.MaxBodyBytes != 0)
	set("inbound", "max_concurrency", cfg.Inbound.MaxConcurrency, cfg.Inbound.MaxConcurrency != 0)
	set("inbound", "default_form_title", cfg.Inbound.DefaultFormTitle, strings.TrimSpace(cfg.Inbound.DefaultFormTitle) != "")

	set("log", "level", cfg.Log.Level, strings.TrimSpace(cfg.Log.Level) != "")
	set("log", "json", cfg.Log.JSON, cfg.Log.JSON)
	return layer
}
