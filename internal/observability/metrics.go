package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	StageLatency     *prometheus.HistogramVec
	StageTimeouts    *prometheus.CounterVec
	AdapterErrors    *prometheus.CounterVec
	SearchLookups    *prometheus.CounterVec
	HistoryTurns     prometheus.Gauge
	RequestLatency   prometheus.Histogram
	BusyWorkers      prometheus.Gauge
	QueuedStages     prometheus.Gauge
	EventSubscribers prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed upload requests by outcome.",
		}, []string{"outcome"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Dispatched stage latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 60},
		}, []string{"stage"}),
		StageTimeouts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_timeouts_total",
			Help:      "Stage awaits that exceeded their budget.",
		}, []string{"stage"}),
		AdapterErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_errors_total",
			Help:      "External adapter errors by adapter.",
		}, []string{"adapter"}),
		SearchLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_lookups_total",
			Help:      "Web search lookups by result.",
		}, []string{"result"}),
		HistoryTurns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_turns",
			Help:      "Total conversation turns currently retained across all callers.",
		}),
		RequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "End-to-end upload request latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}),
		BusyWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy_workers",
			Help:      "Dispatcher workers currently executing a stage.",
		}),
		QueuedStages: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_stages",
			Help:      "Stages waiting for a free dispatcher slot.",
		}),
		EventSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Connected live interaction feed subscribers.",
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveRequest(d time.Duration) {
	m.RequestLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
