package authgate

import (
	internalmetrics "github.com/tmaxwell-dev/authgate/internal/metrics"
)

// MetricsSnapshot is a point-in-time copy of the engine's internal counters.
type MetricsSnapshot = internalmetrics.Snapshot

// MetricsSnapshot returns the current values of all internal counters. The
// snapshot is a copy and stays stable after the call returns. When metrics
// collection is disabled the snapshot contains all-zero counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id internalmetrics.MetricID) {
	e.metrics.Inc(id)
}
