// Package password wraps argon2id hashing in PHC string format. Verification
// always recomputes with the parameters stored in the hash itself, so cost
// changes roll out without invalidating existing credentials.
package password
