package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_tracker"

// Metrics holds the Prometheus counters, histograms, and gauges for the tracker.
type Metrics struct {
	CitiesAdded      prometheus.Counter
	DuplicateAdds    prometheus.Counter
	CitiesRemoved    prometheus.Counter
	FetchErrors      prometheus.Counter
	TrackedCities    prometheus.Gauge
	PersistFailures  *prometheus.CounterVec // labels: key
	PreferenceWrites *prometheus.CounterVec // labels: outcome={success,error}

	// Side-effect metrics.
	Cues *prometheus.CounterVec // labels: kind={add,delete}, outcome={played,failed,muted}

	// Weather lookup metrics.
	LookupRequests *prometheus.CounterVec // labels: outcome={success,error,rejected}
	LookupDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CitiesAdded,
		m.DuplicateAdds,
		m.CitiesRemoved,
		m.FetchErrors,
		m.TrackedCities,
		m.PersistFailures,
		m.PreferenceWrites,
		m.Cues,
		m.LookupRequests,
		m.LookupDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CitiesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_added_total",
			Help:      "Cities appended to the tracked collection.",
		}),
		DuplicateAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_adds_total",
			Help:      "Add requests ignored because the identity was already tracked.",
		}),
		CitiesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_removed_total",
			Help:      "Remove requests processed.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Add requests that failed on the weather lookup.",
		}),
		TrackedCities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_cities",
			Help:      "Cities currently held in memory.",
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Durable store writes that failed, by key.",
		}, []string{"key"}),
		PreferenceWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preference_writes_total",
			Help:      "Preference batches written, by outcome.",
		}, []string{"outcome"}),
		Cues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_total",
			Help:      "Audible cues by kind and outcome.",
		}, []string{"kind", "outcome"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Weather lookups by outcome.",
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "OpenWeatherMap request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
