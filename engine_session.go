package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tmaxwell-dev/authgate/cache"
	"github.com/tmaxwell-dev/authgate/internal"
	internalmetrics "github.com/tmaxwell-dev/authgate/internal/metrics"
	"github.com/tmaxwell-dev/authgate/token"
)

// createSession mints the token pair, writes the durable row, and projects it
// into the cache. The durable write always precedes the cache write: a session
// that exists only in Redis would vanish on eviction with no rehydration path.
// A cache-write failure is an accepted degraded mode (the next Authenticate
// rehydrates from the durable row), so it is logged and swallowed.
func (e *Engine) createSession(ctx context.Context, principal Principal) (*Credentials, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	sessionID := sid.String()
	ref := principal.Ref()

	sessionToken, sessionExpiresAt, err := e.tokens.IssueSession(
		sessionID,
		ref.ID,
		ref.Kind.String(),
		principal.EmailAddress(),
		principalRole(principal),
		principalPlanTier(principal),
	)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiresAt, err := e.tokens.IssueRefresh(uuid.NewString(), ref.ID, ref.Kind.String())
	if err != nil {
		return nil, err
	}

	now := e.now()
	sess := &Session{
		SessionID:        sessionID,
		Principal:        ref,
		SessionToken:     sessionToken,
		RefreshToken:     refreshToken,
		SessionExpiresAt: sessionExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
		Valid:            true,
		Origin:           clientIPFromContext(ctx),
		UserAgent:        userAgentFromContext(ctx),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := e.sessions.Insert(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	snap := snapshotFromPrincipal(principal, now)
	if err := e.cache.Save(ctx, sessionID, snap, e.config.cacheTTL()); err != nil {
		e.metricInc(internalmetrics.MetricCacheDegraded)
		e.logger.Warn().
			Err(err).
			Str("session_id", sessionID).
			Msg("cache write failed after session create, continuing degraded")
	}

	e.metricInc(internalmetrics.MetricSessionCreated)

	return &Credentials{
		SessionID:        sessionID,
		SessionToken:     sessionToken,
		SessionExpiresAt: sessionExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Authenticate is the hot path behind the session middleware: verify the
// bearer token, then resolve the session through the cache with a sliding TTL
// touch, falling back to the durable stores (and rehydrating the cache) on a
// miss. A cache outage degrades to the durable path; only a durable-store
// failure is surfaced as [ErrStoreUnavailable].
func (e *Engine) Authenticate(ctx context.Context, sessionToken string) (*Identity, error) {
	claims, err := e.tokens.VerifySession(sessionToken)
	if err != nil {
		e.metricInc(internalmetrics.MetricAuthenticateFailure)
		e.logger.Debug().
			Bool("expired", errors.Is(err, token.ErrTokenExpired)).
			Msg("session token rejected")
		return nil, ErrTokenInvalid
	}

	identity, err := e.lookupSession(ctx, claims.SessionID, true)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		e.metricInc(internalmetrics.MetricAuthenticateFailure)
		return nil, ErrTokenInvalid
	}

	e.bookkeepElevated(identity.Principal, clientIPFromContext(ctx))

	e.metricInc(internalmetrics.MetricAuthenticateSuccess)
	return identity, nil
}

// Introspect reports the identity behind a session token without mutating any
// session state: no TTL touch, no rehydration, no bookkeeping.
func (e *Engine) Introspect(ctx context.Context, sessionToken string) (*Identity, error) {
	claims, err := e.tokens.VerifySession(sessionToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	identity, err := e.lookupSession(ctx, claims.SessionID, false)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		return nil, ErrTokenInvalid
	}
	return identity, nil
}

// lookupSession resolves a session id to an identity, cache first. The mutate
// flag gates every side effect: TTL touch on hit, cache rehydration on miss.
func (e *Engine) lookupSession(ctx context.Context, sessionID string, mutate bool) (*Identity, error) {
	snap, err := e.cache.Get(ctx, sessionID)
	switch {
	case err == nil:
		if mutate && e.config.Session.SlidingCache {
			// Touch failure only shortens the sliding window; the entry
			// still expires no later than the token does.
			if terr := e.cache.Touch(ctx, sessionID, e.config.cacheTTL()); terr != nil {
				e.metricInc(internalmetrics.MetricCacheDegraded)
				e.logger.Warn().Err(terr).Str("session_id", sessionID).Msg("cache touch failed")
			}
		}
		e.metricInc(internalmetrics.MetricCacheHit)
		return identityFromSnapshot(sessionID, snap), nil
	case errors.Is(err, cache.Miss):
		e.metricInc(internalmetrics.MetricCacheMiss)
	default:
		e.metricInc(internalmetrics.MetricCacheDegraded)
		e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache read failed, degrading to durable path")
	}

	sess, err := e.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !sess.Live(e.now()) {
		return nil, ErrSessionNotFound
	}

	principal, err := e.resolveByRef(ctx, sess.Principal)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	snap = snapshotFromPrincipal(principal, sess.CreatedAt)
	if mutate {
		if serr := e.cache.Save(ctx, sessionID, snap, e.config.cacheTTL()); serr != nil {
			e.metricInc(internalmetrics.MetricCacheDegraded)
			e.logger.Warn().Err(serr).Str("session_id", sessionID).Msg("cache rehydration failed")
		} else {
			e.metricInc(internalmetrics.MetricRehydration)
			e.emitAudit(ctx, auditEventSessionRehydrate, true, sess.Principal, sessionID, nil, nil)
		}
	}

	return identityFromSnapshot(sessionID, snap), nil
}

// Refresh exchanges a live refresh token for a new session token. The refresh
// token itself is not rotated: the session row keeps the value issued at
// login, and concurrent refreshes both succeed (last durable write wins, both
// issued tokens stay verifiable until their own expiry). Unknown, expired,
// and invalidated tokens are indistinguishable: all collapse to
// [ErrRefreshInvalid].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := e.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		e.metricInc(internalmetrics.MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, PrincipalRef{}, "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "token_rejected"}
		})
		return nil, ErrRefreshInvalid
	}

	sess, err := e.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			e.metricInc(internalmetrics.MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, PrincipalRef{}, "", ErrRefreshInvalid, func() map[string]string {
				return map[string]string{"reason": "no_matching_session"}
			})
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !sess.Refreshable(e.now()) {
		e.metricInc(internalmetrics.MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.Principal, sess.SessionID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "session_not_refreshable"}
		})
		return nil, ErrRefreshInvalid
	}

	kind, ok := ParsePrincipalKind(claims.PrincipalKind)
	if !ok || kind != sess.Principal.Kind || claims.PrincipalID != sess.Principal.ID {
		e.metricInc(internalmetrics.MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.Principal, sess.SessionID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "principal_mismatch"}
		})
		return nil, ErrRefreshInvalid
	}

	principal, err := e.resolveByRef(ctx, sess.Principal)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			e.metricInc(internalmetrics.MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.Principal, sess.SessionID, ErrRefreshInvalid, func() map[string]string {
				return map[string]string{"reason": "principal_gone"}
			})
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	sessionToken, sessionExpiresAt, err := e.tokens.IssueSession(
		sess.SessionID,
		sess.Principal.ID,
		sess.Principal.Kind.String(),
		principal.EmailAddress(),
		principalRole(principal),
		principalPlanTier(principal),
	)
	if err != nil {
		return nil, err
	}

	if err := e.sessions.UpdateTokens(ctx, sess.SessionID, sessionToken, sessionExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	snap := snapshotFromPrincipal(principal, sess.CreatedAt)
	if serr := e.cache.Save(ctx, sess.SessionID, snap, e.config.cacheTTL()); serr != nil {
		e.metricInc(internalmetrics.MetricCacheDegraded)
		e.logger.Warn().Err(serr).Str("session_id", sess.SessionID).Msg("cache write failed after refresh")
	}

	e.metricInc(internalmetrics.MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.Principal, sess.SessionID, nil, nil)

	return &RefreshResult{
		SessionID:        sess.SessionID,
		SessionToken:     sessionToken,
		SessionExpiresAt: sessionExpiresAt,
	}, nil
}

// Logout invalidates the session named by a bearer session token. The token
// must carry a valid signature so the session id cannot be forged, but an
// already-dead session still logs out successfully.
func (e *Engine) Logout(ctx context.Context, sessionToken string) error {
	claims, err := e.tokens.VerifySession(sessionToken)
	if err != nil {
		return ErrTokenInvalid
	}
	if err := e.Invalidate(ctx, claims.SessionID); err != nil {
		return err
	}
	e.metricInc(internalmetrics.MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, PrincipalRef{}, claims.SessionID, nil, nil)
	return nil
}

// Invalidate soft-deletes a session: the durable row is marked invalid (never
// deleted, it stays as audit trail) and the cache projection is removed.
// Invalidating an unknown or already-invalid session succeeds; double-submits
// are expected. The cache delete is best-effort: a surviving entry expires
// within one TTL cycle and the durable row is the authority.
func (e *Engine) Invalidate(ctx context.Context, sessionID string) error {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil
	}

	if err := e.sessions.MarkInvalid(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.cache.Delete(ctx, sessionID); err != nil {
		e.metricInc(internalmetrics.MetricCacheDegraded)
		e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache delete failed after invalidate")
	}

	e.metricInc(internalmetrics.MetricSessionInvalidated)
	return nil
}
