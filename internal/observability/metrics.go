package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lexiqai/voice-catalog/internal/voices"
)

var (
	// Registration metrics
	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_catalog_registrations_total",
		Help: "Total number of voice registrations",
	}, []string{"locale", "status"})

	unregistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_catalog_unregistrations_total",
		Help: "Total number of voice unregistrations",
	}, []string{"locale"})

	registeredVoices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_catalog_registered_voices",
		Help: "Number of voices currently registered with the engine",
	})

	registerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_catalog_register_latency_seconds",
		Help:    "Voice registration latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	})

	// Lookup metrics
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_catalog_lookups_total",
		Help: "Total number of handle lookups by result",
	}, []string{"result"}) // result: "hit" or "miss"

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_catalog_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_catalog_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// CatalogMetrics records catalog events as Prometheus metrics
type CatalogMetrics struct{}

// NewCatalogMetrics creates a catalog observer backed by the global metrics
func NewCatalogMetrics() *CatalogMetrics {
	return &CatalogMetrics{}
}

// Observe implements voices.Observer
func (m *CatalogMetrics) Observe(e voices.Event) {
	locale := e.Locale.String()

	switch e.Kind {
	case voices.EventRegistered:
		registrations.WithLabelValues(locale, "success").Inc()
		registerLatency.Observe(e.Latency.Seconds())
		registeredVoices.Inc()
	case voices.EventRegisterFailed:
		registrations.WithLabelValues(locale, "error").Inc()
		registerLatency.Observe(e.Latency.Seconds())
	case voices.EventUnregistered:
		unregistrations.WithLabelValues(locale).Inc()
		registeredVoices.Dec()
	case voices.EventLookupHit:
		lookups.WithLabelValues("hit").Inc()
	case voices.EventLookupMiss:
		lookups.WithLabelValues("miss").Inc()
	}
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
