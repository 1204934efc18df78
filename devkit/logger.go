package devkit

import (
	"context"
	"sync"

	"github.com/goliatone/go-formbridge/core"
)

type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// CaptureLogger records log calls with their key/value pairs.
type CaptureLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
}

func NewCaptureLogger() *CaptureLogger {
	entries := []LogEntry{}
	return &CaptureLogger{mu: &sync.Mutex{}, entries: &entries}
}

func (l *CaptureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *CaptureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *CaptureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *CaptureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *CaptureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *CaptureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *CaptureLogger) WithContext(context.Context) core.Logger {
	return l
}

func (l *CaptureLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), (*l.entries)...)
}

// Has reports whether an entry with level and message was recorded.
func (l *CaptureLogger) Has(level string, message string) bool {
	for _, entry := range l.Entries() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

func (l *CaptureLogger) record(level string, msg string, args ...any) {
	fields := map[string]any{}
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

var _ core.Logger = (*CaptureLogger)(nil)
