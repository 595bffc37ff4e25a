// Package postgres implements the durable principal and session stores on
// PostgreSQL via pgx. Session rows are the authoritative record: they are
// soft-deleted (valid flag) and never removed, and every lookup filters on
// validity and expiry rather than trusting row presence.
package postgres
