package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/tal"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "tal").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for event duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry metrics are registered with and
	// served from. Default: a new registry.
	Registry *prometheus.Registry
}

// Metrics holds the server collectors.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions prometheus.Gauge
	eventsTotal    *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	patchesSent    *prometheus.CounterVec
	evaluations    *prometheus.CounterVec
	reconciles     *prometheus.CounterVec
	bindingFaults  *prometheus.CounterVec
	listenerFaults prometheus.Counter
}

// NewMetrics registers the server collectors.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "tal"
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_sessions",
			Help:        "Number of live sessions",
			ConstLabels: config.ConstLabels,
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_total",
			Help:        "Total number of client events processed",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "event_duration_seconds",
			Help:        "Event processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		patchesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "patches_sent_total",
			Help:        "Total number of patches sent to clients",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "binding_evaluations_total",
			Help:        "Total number of binding evaluations",
			ConstLabels: config.ConstLabels,
		}, []string{"statement"}),

		reconciles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "reconciler_operations_total",
			Help:        "Total number of list events replayed by repeat",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		bindingFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "binding_faults_total",
			Help:        "Total number of binding failures after the initial render",
			ConstLabels: config.ConstLabels,
		}, []string{"statement", "code"}),

		listenerFaults: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "listener_faults_total",
			Help:        "Total number of model listeners that panicked",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns engine hooks that feed the binding collectors.
func (m *Metrics) Hooks() tal.Hooks {
	return tal.Hooks{
		Evaluated: func(statement string) {
			m.evaluations.WithLabelValues(statement).Inc()
		},
		Reconciled: func(op string) {
			m.reconciles.WithLabelValues(op).Inc()
		},
		Fault: func(statement string, err error) {
			m.bindingFaults.WithLabelValues(statement, errorCode(err)).Inc()
		},
	}
}

// FaultHandler counts model listener faults.
func (m *Metrics) FaultHandler() observe.FaultHandler {
	return func(string, any, observe.SubID, any) {
		m.listenerFaults.Inc()
	}
}

func (m *Metrics) patches(counts map[string]int) {
	for op, n := range counts {
		m.patchesSent.WithLabelValues(op).Add(float64(n))
	}
}

func errorCode(err error) string {
	if te, ok := talerrors.As(err); ok {
		return te.Code
	}
	return "other"
}
