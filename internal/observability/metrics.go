package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fasalneeti"

// Metrics holds the Prometheus counters, histograms, and gauges for the yield service.
type Metrics struct {
	PredictionsTotal *prometheus.CounterVec // labels: tier
	ValidationErrors prometheus.Counter

	// Estimator chain metrics.
	EstimatorAttempts *prometheus.CounterVec   // labels: tier, outcome={success,error}
	EstimatorDuration *prometheus.HistogramVec // labels: tier

	// Environmental data metrics.
	EnvironmentResolutions *prometheus.CounterVec   // labels: component={site,weather}, source
	UpstreamRequests       *prometheus.CounterVec   // labels: provider, outcome={success,error}
	UpstreamDuration       *prometheus.HistogramVec // labels: provider
	WeatherCache           *prometheus.CounterVec   // labels: result={hit,miss,error}

	RecordWrites *prometheus.CounterVec // labels: sink, outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method=forward, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method=forward, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Completed predictions by the estimator tier that answered.",
		}, []string{"tier"}),
		ValidationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_validation_errors_total",
			Help:      "Prediction requests rejected before any estimation.",
		}),
		EstimatorAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimator_attempts_total",
			Help:      "Estimator tier attempts by outcome.",
		}, []string{"tier", "outcome"}),
		EstimatorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "estimator_duration_seconds",
			Help:      "Time spent in each estimator tier.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"tier"}),
		EnvironmentResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "environment_resolutions_total",
			Help:      "Environmental factor resolutions by component and source.",
		}, []string{"component", "source"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Environmental data API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Environmental data API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Live weather cache lookups by result.",
		}, []string{"result"}),
		RecordWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_writes_total",
			Help:      "Prediction record writes by sink and outcome.",
		}, []string{"sink", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when district geocoding is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PredictionsTotal,
		m.ValidationErrors,
		m.EstimatorAttempts,
		m.EstimatorDuration,
		m.EnvironmentResolutions,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.WeatherCache,
		m.RecordWrites,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
