package observability

import "github.com/prometheus/client_golang/prometheus"

// Decision outcome labels.
const (
	OutcomeGrant      = "grant"
	OutcomeOwner      = "owner"
	OutcomeRole       = "role"
	OutcomeDenied     = "denied"
	OutcomeFailSecure = "fail_secure"
)

// AccessMetrics tracks the permission resolver.
type AccessMetrics struct {
	decisions         *prometheus.CounterVec
	cacheEvents       *prometheus.CounterVec
	directoryFailures prometheus.Counter
}

// NewAccessMetrics registers resolver counters on the given registerer.
func NewAccessMetrics(reg prometheus.Registerer) *AccessMetrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guildboard_access_decisions_total",
		Help: "Access resolutions by outcome.",
	}, []string{"outcome"})
	cacheEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guildboard_access_cache_events_total",
		Help: "Decision cache hits and misses.",
	}, []string{"event"})
	directoryFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guildboard_role_directory_failures_total",
		Help: "Role directory lookups that failed and forced a deny.",
	})
	if reg != nil {
		reg.MustRegister(decisions, cacheEvents, directoryFailures)
	}
	return &AccessMetrics{
		decisions:         decisions,
		cacheEvents:       cacheEvents,
		directoryFailures: directoryFailures,
	}
}

// Decision counts one resolution outcome.
func (m *AccessMetrics) Decision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// CacheEvent counts a cache hit or miss.
func (m *AccessMetrics) CacheEvent(event string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(event).Inc()
}

// DirectoryFailure counts a failed role directory lookup.
func (m *AccessMetrics) DirectoryFailure() {
	if m == nil {
		return
	}
	m.directoryFailures.Inc()
}
