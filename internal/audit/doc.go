// Package audit implements the asynchronous audit event pipeline: a buffered
// dispatcher goroutine draining into a pluggable sink. The engine emits events
// from authentication flows; sinks decide persistence.
//
// This package must not import authgate or any sibling package.
package audit
