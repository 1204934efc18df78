package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "FORMBRIDGE_"

// envBindings maps environment variables to config paths. The unprefixed
// names are the ones the deployed scripts already use.
var envBindings = map[string]string{
	"PORT":             "server.port",
	"JOTFORM_API_KEY":  "forms.api_key",
	"JOTFORM_BASE_URL": "forms.base_url",
	"GHL_ROUTER_URL":   "forward.router_url",
	"BRIDGE_URL":       "reconcile.canonical_url",

	EnvPrefix + "SERVICE_NAME":               "service_name",
	EnvPrefix + "SERVER_PORT":                "server.port",
	EnvPrefix + "SERVER_SHUTDOWN_TIMEOUT":    "server.shutdown_timeout",
	EnvPrefix + "FORMS_API_KEY":              "forms.api_key",
	EnvPrefix + "FORMS_BASE_URL":             "forms.base_url",
	EnvPrefix + "FORMS_TIMEOUT":              "forms.timeout",
	EnvPrefix + "FORMS_RATE_LIMIT":           "forms.rate_limit",
	EnvPrefix + "FORMS_PAGE_SIZE":            "forms.page_size",
	EnvPrefix + "FORWARD_ROUTER_URL":         "forward.router_url",
	EnvPrefix + "FORWARD_TIMEOUT":            "forward.timeout",
	EnvPrefix + "FORWARD_REQUIRE_EMAIL":      "forward.require_email",
	EnvPrefix + "RECONCILE_CANONICAL_URL":    "reconcile.canonical_url",
	EnvPrefix + "RECONCILE_POLICY":           "reconcile.policy",
	EnvPrefix + "RECONCILE_SCHEDULE":         "reconcile.schedule",
	EnvPrefix + "RECONCILE_CONCURRENCY":      "reconcile.concurrency",
	EnvPrefix + "RECONCILE_RUN_ON_START":     "reconcile.run_on_start",
	EnvPrefix + "INBOUND_CARRIER_KEY":        "inbound.carrier_key",
	EnvPrefix + "INBOUND_PROCESS_TIMEOUT":    "inbound.process_timeout",
	EnvPrefix + "INBOUND_MAX_BODY_BYTES":     "inbound.max_body_bytes",
	EnvPrefix + "INBOUND_MAX_CONCURRENCY":    "inbound.max_concurrency",
	EnvPrefix + "INBOUND_DEFAULT_FORM_TITLE": "inbound.default_form_title",
	EnvPrefix + "LOG_LEVEL":                  "log.level",
	EnvPrefix + "LOG_JSON":                   "log.json",
}

// EnvConfigProvider loads configuration from optional dotenv files and the
// process environment. Prefixed variables win over the legacy names.
type EnvConfigProvider struct {
	EnvFiles []string
	// Lookup overrides os.Environ, mainly for tests.
	Lookup func() []string
}

func NewEnvConfigProvider(envFiles ...string) *EnvConfigProvider {
	return &EnvConfigProvider{EnvFiles: envFiles}
}

func (p *EnvConfigProvider) Load(_ context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	if err := p.loadEnvFiles(); err != nil {
		return Config{}, err
	}

	values := map[string]string{}
	for _, entry := range p.environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		values[key] = value
	}

	k := koanf.New(".")
	loadPass := func(prefixed bool) error {
		return k.Load(env.Provider(".", env.Opt{
			EnvironFunc: func() []string {
				out := make([]string, 0, len(values))
				for key, value := range values {
					if strings.HasPrefix(key, EnvPrefix) == prefixed {
						out = append(out, key+"="+value)
					}
				}
				return out
			},
			TransformFunc: func(key string, value string) (string, any) {
				path, ok := envBindings[key]
				if !ok || strings.TrimSpace(value) == "" {
					return "", nil
				}
				return path, strings.TrimSpace(value)
			},
		}), nil)
	}
	if err := loadPass(false); err != nil {
		return Config{}, fmt.Errorf("core: load environment failed: %w", err)
	}
	if err := loadPass(true); err != nil {
		return Config{}, fmt.Errorf("core: load environment failed: %w", err)
	}

	cfg := defaults
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("core: decode environment failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (p *EnvConfigProvider) environ() []string {
	if p.Lookup != nil {
		return p.Lookup()
	}
	return os.Environ()
}

func (p *EnvConfigProvider) loadEnvFiles() error {
	for _, path := range p.EnvFiles {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("core: load env file %s failed: %w", path, err)
		}
	}
	return nil
}
