// Package metrics exposes core.MetricsRecorder series through Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-formbridge/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Labels is the fixed label set attached to every series. Tags outside the
// set are dropped and missing ones are exported empty. form_id is excluded
// to keep cardinality bounded.
var Labels = []string{"operation", "status", "policy", "trigger", "reason", "action"}

var defaultBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

type Option func(*Recorder)

// WithRuntimeCollectors registers the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(r *Recorder) {
		r.runtime = true
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// Recorder registers counters and histograms lazily on first use in its own
// registry.
type Recorder struct {
	registry *prometheus.Registry
	buckets  []float64
	runtime  bool

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		registry:   prometheus.NewRegistry(),
		buckets:    defaultBuckets,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.runtime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter := r.counter(SanitizeName(name))
	if counter == nil {
		return
	}
	counter.With(labelValues(tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram := r.histogram(SanitizeName(name))
	if histogram == nil {
		return
	}
	histogram.With(labelValues(tags)).Observe(value)
}

func (r *Recorder) counter(name string) *prometheus.CounterVec {
	if name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[name]; ok {
		return existing
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, Labels)
	if err := r.registry.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		vec, ok = already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil
		}
	}
	r.counters[name] = vec
	return vec
}

func (r *Recorder) histogram(name string) *prometheus.HistogramVec {
	if name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[name]; ok {
		return existing
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name, Buckets: r.buckets}, Labels)
	if err := r.registry.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		vec, ok = already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil
		}
	}
	r.histograms[name] = vec
	return vec
}

func labelValues(tags map[string]string) prometheus.Labels {
	labels := make(prometheus.Labels, len(Labels))
	for _, label := range Labels {
		labels[label] = tags[label]
	}
	return labels
}

// SanitizeName maps "formbridge.sweep.total" to "formbridge_sweep_total".
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	for index, char := range name {
		switch {
		case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char == '_', char == ':':
			b.WriteRune(char)
		case char >= '0' && char <= '9':
			if index == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(char)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
