// Package jobs holds the Prometheus instrumentation shared by the background
// loops: the idempotency key cleanup and the directory snapshot warmer.
package jobs

import "github.com/prometheus/client_golang/prometheus"

// Metric names exposed on /metrics. Dashboards and the loop tests key on these.
const (
	MetricBackgroundJobsTotal      = "background_jobs_total"
	MetricBackgroundJobsDuration   = "background_jobs_duration_seconds"
	MetricBackgroundJobErrorsTotal = "background_job_errors_total"
)

// Values for the job_type label.
const (
	JobTypeIdempotencyCleanup = "idempotency_cleanup"
	JobTypeSnapshotWarm       = "snapshot_warm"
)

// Values for the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics instruments background job runs. The recording methods are no-ops
// on a nil receiver, so loops can run with reporting disabled.
type Metrics struct {
	jobsTotal    *prometheus.CounterVec
	jobsDuration *prometheus.HistogramVec
	jobErrors    *prometheus.CounterVec
}

// NewMetrics builds the collectors without registering them; pair with
// Register.
func NewMetrics() *Metrics {
	return &Metrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricBackgroundJobsTotal,
			Help: "Background job executions by type and status",
		}, []string{"job_type", "status"}),
		jobsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricBackgroundJobsDuration,
			Help:    "Background job duration in seconds by type",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_type"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricBackgroundJobErrorsTotal,
			Help: "Background job errors by type and error kind",
		}, []string{"job_type", "error_type"}),
	}
}

// Register adds all collectors to reg, stopping at the first failure.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns the underlying collectors, mainly for tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.jobsTotal, m.jobsDuration, m.jobErrors}
}

// IncJobsTotal counts one finished run of jobType with the given status.
func (m *Metrics) IncJobsTotal(jobType, status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(jobType, status).Inc()
}

// ObserveJobDuration records how long one run of jobType took.
func (m *Metrics) ObserveJobDuration(jobType string, seconds float64) {
	if m == nil {
		return
	}
	m.jobsDuration.WithLabelValues(jobType).Observe(seconds)
}

// IncJobErrors counts one failure of jobType, bucketed by errorType.
func (m *Metrics) IncJobErrors(jobType, errorType string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(jobType, errorType).Inc()
}
