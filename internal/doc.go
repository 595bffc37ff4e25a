// Package internal holds helpers shared by the authgate root package that must
// not leak into the public API: session id generation and nothing else. Audit
// dispatch and metric counters live in their own subpackages.
package internal
