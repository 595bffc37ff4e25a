// Package memory provides mutex-guarded in-memory implementations of the
// durable store contracts, for tests and local development. Semantics mirror
// the postgres package: case-insensitive email matching, soft-deleted session
// rows, idempotent invalidation.
package memory
