package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
type Metrics struct {
	Registrations prometheus.Counter
	Logins        prometheus.Counter
	LoginFailures prometheus.Counter
}

// New creates a Metrics instance with all auth module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_registrations_total",
			Help: "Total number of successful user registrations",
		}),
		Logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_logins_total",
			Help: "Total number of successful logins",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_login_failures_total",
			Help: "Total number of failed login attempts",
		}),
	}
}

// IncrementRegistered records a successful registration.
func (m *Metrics) IncrementRegistered() {
	m.Registrations.Inc()
}

// IncrementLogin records a successful login.
func (m *Metrics) IncrementLogin() {
	m.Logins.Inc()
}

// IncrementLoginFailure records a rejected login attempt.
func (m *Metrics) IncrementLoginFailure() {
	m.LoginFailures.Inc()
}
