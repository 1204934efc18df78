package gologger

import (
	"context"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/goliatone/go-formbridge/core"
	glog "github.com/goliatone/go-logger/glog"
)

// TraceLevel sits below charm's debug level.
const TraceLevel = charmlog.DebugLevel - 4

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ParseLevel accepts trace plus the charm level names. Unknown values fall
// back to info.
func ParseLevel(raw string) charmlog.Level {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "trace" {
		return TraceLevel
	}
	level, err := charmlog.ParseLevel(raw)
	if err != nil {
		return charmlog.InfoLevel
	}
	return level
}

// New builds a provider whose loggers write through charmbracelet/log. A nil
// writer means stderr.
func New(cfg core.LogConfig, w io.Writer) *Provider {
	if w == nil {
		w = os.Stderr
	}
	formatter := charmlog.TextFormatter
	if cfg.JSON {
		formatter = charmlog.JSONFormatter
	}
	base := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           ParseLevel(cfg.Level),
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	return &Provider{base: base}
}

type Provider struct {
	base *charmlog.Logger
}

func (p *Provider) GetLogger(name string) glog.Logger {
	if p == nil || p.base == nil {
		return glog.Nop()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return &Logger{log: p.base}
	}
	return &Logger{log: p.base.WithPrefix(name)}
}

// Logger adapts a charm logger to the glog contract.
type Logger struct {
	log *charmlog.Logger
}

func (l *Logger) Trace(msg string, args ...any) { l.log.Log(TraceLevel, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
func (l *Logger) Fatal(msg string, args ...any) { l.log.Fatal(msg, args...) }

func (l *Logger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &Logger{log: l.log.With(args...)}
}

var (
	_ glog.LoggerProvider = (*Provider)(nil)
	_ glog.Logger         = (*Logger)(nil)
	_ glog.FieldsLogger   = (*Logger)(nil)
)
