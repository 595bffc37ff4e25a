// Package authgate provides the authentication and session-lifecycle core for a
// multi-tenant web backend: JWT session and refresh tokens, a Redis read-through
// cache in front of a durable relational session store, and a stateless two-step
// verification layer.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config], the
// principal and session value types, and the collaborator contracts
// ([PrincipalDirectory], [SessionRecords], [Bookkeeper]). Flow internals (audit
// dispatch, metric counters, id generation) live under internal/ and are never
// exported.
//
// # Consistency model
//
// The durable store is the single writer-of-record; the cache is a derived
// projection populated cache-aside. Durable writes always precede cache writes on
// session creation, and cache deletes follow durable invalidation on logout. A
// cache outage degrades every read to the durable path; a durable outage is the
// only unrecoverable failure.
//
// # Performance contract
//
// Authenticate is the hot path. On a cache hit it performs exactly one Redis
// round trip plus one PEXPIRE for the sliding window, and never touches the
// durable store.
package authgate
