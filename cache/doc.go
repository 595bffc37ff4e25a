// Package cache provides the Redis-backed ephemeral projection of session
// records: a compact binary snapshot per session id with a sliding TTL.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Snapshot] codec.
// It does NOT decide authentication outcomes: a miss here only routes the
// lookup to the durable store, and a transport error is downgraded to a miss
// by the Engine.
//
// # What this package must NOT do
//
//   - Import authgate or token (no upward imports).
//   - Treat cached state as authoritative.
//   - Store token values or password material in [Snapshot] fields.
package cache
