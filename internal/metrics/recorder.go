package metrics

import (
	"context"
	"net/http"
	"time"

	"calorie-tracker/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Recorder counts external calls in Prometheus and, when a Store is set,
// persists each call to SQLite.
//
// Metrics:
//   - calorie_tracker_external_calls_total{service,outcome}
//   - calorie_tracker_external_call_duration_seconds{service}
//   - calorie_tracker_llm_tokens_total{service,kind}
type Recorder struct {
	store    *Store
	logger   *zap.Logger
	registry *prometheus.Registry

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

// NewRecorder registers the collectors on a private registry. store may be nil.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		store:    store,
		logger:   logger,
		registry: reg,
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_tracker_external_calls_total",
				Help: "Total number of calls to external services",
			},
			[]string{"service", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "calorie_tracker_external_call_duration_seconds",
				Help:    "Duration of external service calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_tracker_llm_tokens_total",
				Help: "Tokens reported by language model providers",
			},
			[]string{"service", "kind"},
		),
	}
}

// RecordCall implements shared.CallRecorder.
func (r *Recorder) RecordCall(meta shared.CallMeta) {
	r.calls.WithLabelValues(meta.Service, meta.Outcome()).Inc()
	r.duration.WithLabelValues(meta.Service).Observe(meta.Latency.Seconds())
	if meta.Usage.PromptTokens > 0 {
		r.tokens.WithLabelValues(meta.Service, "prompt").Add(float64(meta.Usage.PromptTokens))
	}
	if meta.Usage.CompletionTokens > 0 {
		r.tokens.WithLabelValues(meta.Service, "completion").Add(float64(meta.Usage.CompletionTokens))
	}

	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.RecordMeta(ctx, meta); err != nil {
		r.logger.Warn("failed to persist call metric", zap.String("service", meta.Service), zap.Error(err))
	}
}

// Registry exposes the collectors, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
