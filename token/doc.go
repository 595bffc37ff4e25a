// Package token mints and verifies the signed bearer credentials: session,
// refresh, and two-step tokens, each with its own claim shape and lifetime.
// The issuer is stateless; it never stores tokens and never touches Redis or
// the durable store.
package token
