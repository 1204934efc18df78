package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ServerConfig struct {
	Port            int           `koanf:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type FormsConfig struct {
	APIKey    string        `koanf:"api_key" mapstructure:"api_key"`
	BaseURL   string        `koanf:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `koanf:"timeout" mapstructure:"timeout"`
	RateLimit float64       `koanf:"rate_limit" mapstructure:"rate_limit"`
	PageSize  int           `koanf:"page_size" mapstructure:"page_size"`
}

type ForwardConfig struct {
	RouterURL    string        `koanf:"router_url" mapstructure:"router_url"`
	Timeout      time.Duration `koanf:"timeout" mapstructure:"timeout"`
	RequireEmail bool          `koanf:"require_email" mapstructure:"require_email"`
}

type ReconcileConfig struct {
	CanonicalURL string `koanf:"canonical_url" mapstructure:"canonical_url"`
	Policy       string `koanf:"policy" mapstructure:"policy"`
	Schedule     string `koanf:"schedule" mapstructure:"schedule"`
	Concurrency  int    `koanf:"concurrency" mapstructure:"concurrency"`
	RunOnStart   bool   `koanf:"run_on_start" mapstructure:"run_on_start"`
}

type InboundConfig struct {
	CarrierKey       string        `koanf:"carrier_key" mapstructure:"carrier_key"`
	ProcessTimeout   time.Duration `koanf:"process_timeout" mapstructure:"process_timeout"`
	MaxBodyBytes     int64         `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxConcurrency   int           `koanf:"max_concurrency" mapstructure:"max_concurrency"`
	DefaultFormTitle string        `koanf:"default_form_title" mapstructure:"default_form_title"`
}

type LogConfig struct {
	Level string `koanf:"level" mapstructure:"level"`
	JSON  bool   `koanf:"json" mapstructure:"json"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Server      ServerConfig    `koanf:"server" mapstructure:"server"`
	Forms       FormsConfig     `koanf:"forms" mapstructure:"forms"`
	Forward     ForwardConfig   `koanf:"forward" mapstructure:"forward"`
	Reconcile   ReconcileConfig `koanf:"reconcile" mapstructure:"reconcile"`
	Inbound     InboundConfig   `koanf:"inbound" mapstructure:"inbound"`
	Log         LogConfig       `koanf:"log" mapstructure:"log"`
}

const (
	DefaultServiceName      = "formbridge"
	DefaultFormsBaseURL     = "https://api.jotform.com"
	DefaultCarrierKey       = "rawRequest"
	DefaultFormTitle        = "Signed Contract"
	DefaultSweepSchedule    = "@every 30m"
	defaultMaxBodyBytes     = 10 << 20
	defaultSweepConcurrency = 4
	defaultInboundWorkers   = 64
)

func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		Server: ServerConfig{
			Port:            3001,
			ShutdownTimeout: 15 * time.Second,
		},
		Forms: FormsConfig{
			BaseURL:   DefaultFormsBaseURL,
			Timeout:   20 * time.Second,
			RateLimit: 5,
			PageSize:  100,
		},
		Forward: ForwardConfig{
			Timeout:      15 * time.Second,
			RequireEmail: true,
		},
		Reconcile: ReconcileConfig{
			Policy:      string(PolicyAdditive),
			Schedule:    DefaultSweepSchedule,
			Concurrency: defaultSweepConcurrency,
		},
		Inbound: InboundConfig{
			CarrierKey:       DefaultCarrierKey,
			ProcessTimeout:   30 * time.Second,
			MaxBodyBytes:     defaultMaxBodyBytes,
			MaxConcurrency:   defaultInboundWorkers,
			DefaultFormTitle: DefaultFormTitle,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("core: server.port %d is invalid", c.Server.Port)
	}
	if _, err := ParsePolicy(c.Reconcile.Policy); err != nil {
		return err
	}
	if c.Reconcile.Concurrency < 0 {
		return fmt.Errorf("core: reconcile.concurrency must not be negative")
	}
	if c.Inbound.MaxConcurrency < 0 {
		return fmt.Errorf("core: inbound.max_concurrency must not be negative")
	}
	if c.Forms.RateLimit < 0 {
		return fmt.Errorf("core: forms.rate_limit must not be negative")
	}
	if c.Forms.PageSize < 0 {
		return fmt.Errorf("core: forms.page_size must not be negative")
	}
	for field, raw := range map[string]string{
		"forms.base_url":          c.Forms.BaseURL,
		"forward.router_url":      c.Forward.RouterURL,
		"reconcile.canonical_url": c.Reconcile.CanonicalURL,
	} {
		if err := validateAbsoluteURL(field, raw); err != nil {
			return err
		}
	}
	return nil
}

// ReconcilePolicy returns the configured policy, falling back to ADDITIVE.
func (c Config) ReconcilePolicy() Policy {
	policy, err := ParsePolicy(c.Reconcile.Policy)
	if err != nil {
		return PolicyAdditive
	}
	return policy
}

func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func validateAbsoluteURL(field string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("core: %s is invalid: %w", field, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: %s must be an absolute url", field)
	}
	return nil
}
