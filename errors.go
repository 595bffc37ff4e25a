package authgate

import "errors"

var (
	// ErrInvalidCredentials is returned for any bad email/password pair. The
	// message never distinguishes which field was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrPrincipalNotFound is returned by directory lookups for absent rows.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrAccountExists is returned by Register when the email is taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrTokenInvalid is the uniform rejection for malformed, forged, or
	// expired tokens. The internal distinction exists only for logging.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrSessionNotFound covers a missing durable row, a cleared validity
	// flag, and a passed session expiry. Externally it shares the shape of
	// ErrTokenInvalid so callers cannot tell a dead session from a bad token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshInvalid is the uniform rejection for every refresh failure
	// mode: bad signature, unknown token, invalidated or expired session.
	ErrRefreshInvalid = errors.New("invalid or expired refresh token")

	// ErrStoreUnavailable is returned when the durable store cannot be
	// reached. It is the only unrecoverable dependency failure: with the
	// cache already missed, no source of truth remains.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrPrimaryTokenRejected reports a two-step failure at step one.
	ErrPrimaryTokenRejected = errors.New("two-step verification failed at step 1")
	// ErrSecondaryTokenRejected reports a two-step failure at step two.
	ErrSecondaryTokenRejected = errors.New("two-step verification failed at step 2")
	// ErrPrincipalMismatch is returned when both two-step tokens verify but
	// embed different principals. Distinct from either step failure because
	// it indicates token substitution rather than ordinary expiry.
	ErrPrincipalMismatch = errors.New("two-step token principal mismatch")

	// ErrEngineNotReady is returned when the Engine was not built correctly.
	ErrEngineNotReady = errors.New("engine not initialized")
)
