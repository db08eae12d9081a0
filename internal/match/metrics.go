package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricMatchRequestsTotal      = "match_requests_total"
	MetricMatchDuration           = "match_duration_seconds"
	MetricMatchVendorsEvaluated   = "match_vendors_evaluated_total"
	MetricMatchVendorsIneligible  = "match_vendors_ineligible_total"
	MetricMatchCandidatesReturned = "match_candidates_returned"
)

// Ineligibility reasons used as label values.
const (
	ReasonCategoryMismatch = "category_mismatch"
	ReasonBlacklisted      = "blacklisted"
)

// Metrics holds the Prometheus instrumentation for the matching engine.
// Methods are safe for concurrent use.
type Metrics struct {
	requestsTotal      prometheus.Counter
	duration           prometheus.Histogram
	vendorsEvaluated   prometheus.Counter
	vendorsIneligible  *prometheus.CounterVec
	candidatesReturned prometheus.Histogram
}

// NewMetrics builds the collectors without registering them; call Register
// to attach them to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMatchRequestsTotal,
			Help: "Total number of match requests ranked",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricMatchDuration,
			Help:    "Histogram of match ranking duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		vendorsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMatchVendorsEvaluated,
			Help: "Total number of vendor records evaluated across match requests",
		}),
		vendorsIneligible: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMatchVendorsIneligible,
			Help: "Total number of vendor records excluded before scoring, by reason",
		}, []string{"reason"}),
		candidatesReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricMatchCandidatesReturned,
			Help:    "Histogram of candidates returned per match request across all categories",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 45},
		}),
	}
}

// Register attaches every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRequests increments the match request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// ObserveDuration records a ranking duration sample.
func (m *Metrics) ObserveDuration(seconds float64) {
	m.duration.Observe(seconds)
}

// AddVendorsEvaluated adds to the evaluated vendor counter.
func (m *Metrics) AddVendorsEvaluated(n int) {
	m.vendorsEvaluated.Add(float64(n))
}

// AddVendorsIneligible adds to the ineligible vendor counter for a reason.
func (m *Metrics) AddVendorsIneligible(reason string, n int) {
	if n <= 0 {
		return
	}
	m.vendorsIneligible.WithLabelValues(reason).Add(float64(n))
}

// ObserveCandidatesReturned records how many candidates one request produced.
func (m *Metrics) ObserveCandidatesReturned(n int) {
	m.candidatesReturned.Observe(float64(n))
}

// Collectors returns the underlying collectors, mainly for tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.duration,
		m.vendorsEvaluated,
		m.vendorsIneligible,
		m.candidatesReturned,
	}
}
