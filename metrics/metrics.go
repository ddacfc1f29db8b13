// Package metrics registers the Prometheus collectors exposed at /metrics
// and provides small recording helpers for the rest of the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the application updates. It satisfies
// feed.Observer so it can be handed directly to a feed adapter.
type Metrics struct {
	TasksActive      *prometheus.GaugeVec
	CommandsTotal    *prometheus.CounterVec
	WorkerThreads    prometheus.Gauge
	FetchTotal       *prometheus.CounterVec
	FetchTripUpdates prometheus.Histogram
	HTTPDuration     *prometheus.HistogramVec
}

// New registers every collector against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TasksActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tulsa",
			Name:      "tasks_active",
			Help:      "Number of recurring feed tasks currently scheduled, by substrate.",
		}, []string{"substrate"}),

		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tulsa",
			Name:      "commands_total",
			Help:      "Scheduler commands handled, by substrate and operation.",
		}, []string{"substrate", "op"}),

		WorkerThreads: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tulsa",
			Name:      "async_worker_threads",
			Help:      "Configured worker thread count for the async scheduler.",
		}),

		FetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feed",
			Name:      "fetch_total",
			Help:      "Feed fetch attempts, by result.",
		}, []string{"result"}),

		FetchTripUpdates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feed",
			Name:      "fetch_trip_updates",
			Help:      "Trip updates observed per successful fetch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveFetch records the outcome of one feed fetch attempt. It implements
// feed.Observer.
func (m *Metrics) ObserveFetch(feedID uint64, tripUpdates int, err error) {
	if err != nil {
		m.FetchTotal.WithLabelValues("error").Inc()
		return
	}
	m.FetchTotal.WithLabelValues("success").Inc()
	m.FetchTripUpdates.Observe(float64(tripUpdates))
}

// ObserveCommand records one scheduler command being handled.
func (m *Metrics) ObserveCommand(substrate, op string) {
	m.CommandsTotal.WithLabelValues(substrate, op).Inc()
}

// SetTasksActive sets the current task count for a substrate.
func (m *Metrics) SetTasksActive(substrate string, n int) {
	m.TasksActive.WithLabelValues(substrate).Set(float64(n))
}

// SetWorkerThreads records the configured async worker thread count.
func (m *Metrics) SetWorkerThreads(n int) {
	m.WorkerThreads.Set(float64(n))
}

// ObserveHTTPRequest records the latency of one HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
