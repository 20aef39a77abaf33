package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds the application logger. Production environments log JSON,
// everything else logs human-readable text.
func NewLogger(environment string) *slog.Logger {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler).With(slog.String("service", "scrimpilot"))
}

// Tracer returns the tracer used for service operation spans.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/Stouckie/Scrimpilot")
}

// Metrics records operation outcomes per component.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, component string)
	RecordOperationSuccess(ctx context.Context, operation, component string)
	RecordOperationFailure(ctx context.Context, operation, component string)
	RecordOperationDuration(ctx context.Context, operation, component string, duration time.Duration)
}

// PrometheusMetrics implements Metrics on a prometheus registry.
type PrometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the operation collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	labels := []string{"operation", "component"}
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrimpilot_operation_attempts_total",
			Help: "Operations attempted, by operation and component.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrimpilot_operation_successes_total",
			Help: "Operations completed successfully.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrimpilot_operation_failures_total",
			Help: "Operations that returned an error.",
		}, labels),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scrimpilot_operation_duration_seconds",
			Help:    "Operation wall-clock duration.",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.durations)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, component string) {
	m.attempts.WithLabelValues(operation, component).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, component string) {
	m.successes.WithLabelValues(operation, component).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, component string) {
	m.failures.WithLabelValues(operation, component).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, component string, duration time.Duration) {
	m.durations.WithLabelValues(operation, component).Observe(duration.Seconds())
}

// NoOpMetrics discards all measurements. Used by tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                  {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                  {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                  {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}

// NewTestLogger returns a logger that discards nothing but stays quiet enough
// for test output: debug records are dropped.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
