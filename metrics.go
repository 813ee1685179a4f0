package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed password and SMS logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential checks.
	MetricLoginFailure
	// MetricLoginLocked counts logins rejected by an active lockout.
	MetricLoginLocked
	// MetricMFARequired counts logins deferred to a second factor.
	MetricMFARequired
	// MetricMFASuccess counts completed second-factor verifications.
	MetricMFASuccess
	// MetricMFAFailure counts rejected second-factor verifications.
	MetricMFAFailure
	// MetricSMSSent counts verification codes handed to the SMS gateway.
	MetricSMSSent
	// MetricSMSRateLimited counts sends rejected by the SMS gate.
	MetricSMSRateLimited
	// MetricRefreshSuccess counts completed token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected token refreshes.
	MetricRefreshFailure
	// MetricValidateSuccess counts access tokens accepted by ValidateAccess.
	MetricValidateSuccess
	// MetricValidateFailure counts access tokens rejected by ValidateAccess.
	MetricValidateFailure
	// MetricSessionCreated counts session records written at login.
	MetricSessionCreated
	// MetricSessionRevoked counts sessions ended by logout or revocation.
	MetricSessionRevoked
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. All methods are safe for
// concurrent use.
type Metrics struct {
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics returns a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
