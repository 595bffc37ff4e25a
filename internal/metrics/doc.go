// Package metrics provides lock-free counters for authgate observability.
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. The write path is allocation-free. Export is pull-based: callers
// read [Metrics.Snapshot] and serve it however they like (the HTTP layer
// exposes it as JSON on an admin route).
//
// This package must not perform I/O or import authgate.
package metrics
