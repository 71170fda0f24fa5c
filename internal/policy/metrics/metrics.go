package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy module.
type Metrics struct {
	Created     prometheus.Counter
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// New creates a Metrics instance with all policy module metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_policies_created_total",
			Help: "Total number of policies created",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_policy_cache_hits_total",
			Help: "Total number of policy lookups served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policygate_policy_cache_misses_total",
			Help: "Total number of policy lookups that missed the cache",
		}),
	}
}

// IncrementCreated records a created policy.
func (m *Metrics) IncrementCreated() {
	m.Created.Inc()
}

// IncrementCacheHit records a cache hit on policy lookup.
func (m *Metrics) IncrementCacheHit() {
	m.CacheHits.Inc()
}

// IncrementCacheMiss records a cache miss on policy lookup.
func (m *Metrics) IncrementCacheMiss() {
	m.CacheMisses.Inc()
}
