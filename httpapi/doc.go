// Package httpapi exposes the engine over HTTP with gin. Error bodies are
// uniform {"error": "..."} objects, and the credential/token/session error
// taxonomy is preserved: a caller cannot distinguish a dead session from a bad
// token, and login failures never reveal which field was wrong.
package httpapi
