package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmaxwell-dev/authgate/cache"
)

// elevatedRole is the role name reported for elevated principals, which carry
// permissions instead of a stored role column.
const elevatedRole = "elevated"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// resolveByCredentials maps an email/password pair to a principal. The
// elevated namespace is checked first: an active elevated account always wins
// an email collision, while an inactive one is skipped so a standard account
// under the same address can still sign in. Every rejection collapses to
// [ErrInvalidCredentials] so callers cannot distinguish unknown email,
// wrong password, or namespace.
func (e *Engine) resolveByCredentials(ctx context.Context, email, plaintext string) (Principal, error) {
	elevated, err := e.directory.FindElevatedByEmail(ctx, email)
	switch {
	case err == nil:
		if elevated.Active {
			ok, verr := e.hasher.Verify(plaintext, elevated.PasswordHash)
			if verr != nil || !ok {
				return nil, ErrInvalidCredentials
			}
			return elevated, nil
		}
		// Inactive elevated account: fall through to the standard namespace.
	case errors.Is(err, ErrPrincipalNotFound):
	default:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	standard, err := e.directory.FindStandardByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := e.hasher.Verify(plaintext, standard.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return standard, nil
}

// resolveByRef loads the principal a session row points at. An inactive
// elevated account is reported as absent so deactivation takes effect on the
// next durable lookup rather than waiting for the session to expire.
func (e *Engine) resolveByRef(ctx context.Context, ref PrincipalRef) (Principal, error) {
	switch ref.Kind {
	case KindElevated:
		elevated, err := e.directory.FindElevatedByID(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, ErrPrincipalNotFound) {
				return nil, ErrPrincipalNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !elevated.Active {
			return nil, ErrPrincipalNotFound
		}
		return elevated, nil
	default:
		standard, err := e.directory.FindStandardByID(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, ErrPrincipalNotFound) {
				return nil, ErrPrincipalNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return standard, nil
	}
}

func principalRole(p Principal) string {
	switch acct := p.(type) {
	case *StandardAccount:
		return acct.Role
	case *ElevatedAccount:
		return elevatedRole
	}
	return ""
}

func principalPlanTier(p Principal) string {
	if acct, ok := p.(*StandardAccount); ok {
		return acct.PlanTier
	}
	return ""
}

func principalOnline(p Principal) bool {
	if acct, ok := p.(*ElevatedAccount); ok {
		return acct.Online
	}
	return false
}

func snapshotFromPrincipal(p Principal, sessionCreatedAt time.Time) *cache.Snapshot {
	ref := p.Ref()
	return &cache.Snapshot{
		PrincipalKind:    uint8(ref.Kind),
		PrincipalID:      ref.ID,
		Email:            p.EmailAddress(),
		Name:             p.DisplayName(),
		Role:             principalRole(p),
		PlanTier:         principalPlanTier(p),
		Online:           principalOnline(p),
		SessionCreatedAt: sessionCreatedAt.Unix(),
	}
}

func identityFromSnapshot(sessionID string, snap *cache.Snapshot) *Identity {
	return &Identity{
		Principal: PrincipalRef{
			Kind: PrincipalKind(snap.PrincipalKind),
			ID:   snap.PrincipalID,
		},
		SessionID:        sessionID,
		Email:            snap.Email,
		Name:             snap.Name,
		Role:             snap.Role,
		PlanTier:         snap.PlanTier,
		Online:           snap.Online,
		SessionCreatedAt: time.Unix(snap.SessionCreatedAt, 0).UTC(),
	}
}

// bookkeepElevated pushes an asynchronous status update for an elevated
// principal. Failures are swallowed: bookkeeping must never block or fail a
// request path.
func (e *Engine) bookkeepElevated(ref PrincipalRef, origin string) {
	if e.bookkeeper == nil || ref.Kind != KindElevated {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := e.bookkeeper.RecordElevatedSeen(ctx, ref.ID, origin); err != nil {
			e.logger.Warn().
				Err(err).
				Str("principal_id", ref.ID).
				Msg("elevated bookkeeping update failed")
		}
	}()
}
