package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enrollment workflow.
type Metrics struct {
	Requested  prometheus.Counter
	Approved   prometheus.Counter
	Rejected   prometheus.Counter
	Duplicates prometheus.Counter
}

// New creates a Metrics instance with all enrollment module metrics
// registered.
func New() *Metrics {
	return &Metrics{
		Requested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_enrollments_requested_total",
			Help: "Total number of enrollment requests created",
		}),
		Approved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_enrollments_approved_total",
			Help: "Total number of enrollments approved",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_enrollments_rejected_total",
			Help: "Total number of enrollments rejected",
		}),
		Duplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_enrollment_duplicates_total",
			Help: "Total number of enrollment requests refused as duplicates",
		}),
	}
}

// IncrementRequested records a created enrollment request.
func (m *Metrics) IncrementRequested() {
	m.Requested.Inc()
}

// IncrementApproved records an approved enrollment.
func (m *Metrics) IncrementApproved() {
	m.Approved.Inc()
}

// IncrementRejected records a rejected enrollment.
func (m *Metrics) IncrementRejected() {
	m.Rejected.Inc()
}

// IncrementDuplicate records an enrollment refused because a blocking row
// already existed.
func (m *Metrics) IncrementDuplicate() {
	m.Duplicates.Inc()
}
