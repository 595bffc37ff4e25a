package metrics

import "sync/atomic"

// MetricID identifies one counter slot.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricSessionCreated
	MetricSessionInvalidated
	MetricLogout
	MetricCacheHit
	MetricCacheMiss
	MetricCacheDegraded
	MetricRehydration
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	MetricTwoStepSuccess
	MetricTwoStepMismatch
	MetricTwoStepRejected

	MetricIDCount
)

var metricNames = [MetricIDCount]string{
	MetricLoginSuccess:        "login_success",
	MetricLoginFailure:        "login_failure",
	MetricRegisterSuccess:     "register_success",
	MetricRegisterFailure:     "register_failure",
	MetricSessionCreated:      "session_created",
	MetricSessionInvalidated:  "session_invalidated",
	MetricLogout:              "logout",
	MetricCacheHit:            "cache_hit",
	MetricCacheMiss:           "cache_miss",
	MetricCacheDegraded:       "cache_degraded",
	MetricRehydration:         "rehydration",
	MetricRefreshSuccess:      "refresh_success",
	MetricRefreshFailure:      "refresh_failure",
	MetricAuthenticateSuccess: "authenticate_success",
	MetricAuthenticateFailure: "authenticate_failure",
	MetricTwoStepSuccess:      "twostep_success",
	MetricTwoStepMismatch:     "twostep_mismatch",
	MetricTwoStepRejected:     "twostep_rejected",
}

// Name returns the stable export name of a metric.
func (id MetricID) Name() string {
	if id >= MetricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// Config controls metric collection.
type Config struct {
	Enabled bool
}

// padded keeps each counter on its own cache line to avoid false sharing on
// the authenticate hot path.
type padded struct {
	v byte
	_ [7]byte
	n atomic.Uint64
	_ [48]byte
}

// Metrics holds atomic counters. All operations are no-ops when disabled.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]padded
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter. Allocation-free.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].n.Add(1)
}

// Snapshot is a point-in-time copy of all counters keyed by export name.
type Snapshot struct {
	Counters map[string]uint64 `json:"counters"`
}

// Snapshot deep-copies the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[string]uint64, int(MetricIDCount))}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id.Name()] = m.counters[id].n.Load()
	}
	return snap
}
