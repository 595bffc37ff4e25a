package authgate

import (
	"context"
	"time"
)

// PrincipalKind discriminates the two account namespaces a session can belong to.
type PrincipalKind uint8

const (
	// KindStandard identifies an ordinary customer account.
	KindStandard PrincipalKind = iota
	// KindElevated identifies a privileged back-office account.
	KindElevated
)

// String returns the wire name of the kind ("standard" or "elevated").
func (k PrincipalKind) String() string {
	if k == KindElevated {
		return "elevated"
	}
	return "standard"
}

// ParsePrincipalKind maps a wire name back to a [PrincipalKind].
func ParsePrincipalKind(s string) (PrincipalKind, bool) {
	switch s {
	case "standard":
		return KindStandard, true
	case "elevated":
		return KindElevated, true
	}
	return 0, false
}

// PrincipalRef is the tagged reference a session carries to its owner.
// A session belongs to exactly one principal of exactly one kind; the pair
// (Kind, ID) is the discriminated union the data model requires, never two
// nullable foreign keys.
type PrincipalRef struct {
	Kind PrincipalKind
	ID   string
}

// Principal is the sealed union of [StandardAccount] and [ElevatedAccount].
type Principal interface {
	Ref() PrincipalRef
	EmailAddress() string
	DisplayName() string

	isPrincipal()
}

// StandardAccount is an ordinary customer account.
//
// StandardAccount instances are intended to be loaded from the durable store and
// then treated as immutable.
type StandardAccount struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	PlanTier     string
}

// Ref returns the tagged reference for the account.
func (a *StandardAccount) Ref() PrincipalRef { return PrincipalRef{Kind: KindStandard, ID: a.ID} }

// EmailAddress returns the account's normalized email.
func (a *StandardAccount) EmailAddress() string { return a.Email }

// DisplayName returns the account's display name.
func (a *StandardAccount) DisplayName() string { return a.Name }

func (a *StandardAccount) isPrincipal() {}

// ElevatedAccount is a privileged back-office account. Elevated accounts form a
// disjoint namespace that is checked before standard accounts during credential
// resolution; an active elevated account always wins an email collision.
type ElevatedAccount struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Permissions  []string
	Active       bool
	Online       bool
	CurrentIP    string
	LastIP       string
}

// Ref returns the tagged reference for the account.
func (a *ElevatedAccount) Ref() PrincipalRef { return PrincipalRef{Kind: KindElevated, ID: a.ID} }

// EmailAddress returns the account's normalized email.
func (a *ElevatedAccount) EmailAddress() string { return a.Email }

// DisplayName returns the account's display name.
func (a *ElevatedAccount) DisplayName() string { return a.Name }

func (a *ElevatedAccount) isPrincipal() {}

// Session is the durable record of one authenticated login. The row is the
// source of truth; the cache holds at most one ephemeral projection of it.
//
// A session is live while Valid is true and the clock has not passed
// SessionExpiresAt. It is refreshable while Valid is true and the clock has not
// passed RefreshExpiresAt. Stale rows are treated as absent by every query but
// are never deleted (audit trail).
type Session struct {
	SessionID string
	Principal PrincipalRef

	SessionToken string
	RefreshToken string

	SessionExpiresAt time.Time
	RefreshExpiresAt time.Time
	Valid            bool

	Origin    string
	UserAgent string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the session admits requests at the given instant.
func (s *Session) Live(now time.Time) bool {
	return s.Valid && now.Before(s.SessionExpiresAt)
}

// Refreshable reports whether the session can still mint session tokens.
func (s *Session) Refreshable(now time.Time) bool {
	return s.Valid && now.Before(s.RefreshExpiresAt)
}

// Identity is the resolved per-request view attached to an authenticated
// request. It is denormalized from the cache snapshot on the fast path and from
// the durable stores on rehydration.
type Identity struct {
	Principal PrincipalRef
	SessionID string
	Email     string
	Name      string
	Role      string
	PlanTier  string
	Online    bool

	SessionCreatedAt time.Time
}

// Credentials is the token pair returned by Login and Register.
type Credentials struct {
	SessionID string

	SessionToken     string
	SessionExpiresAt time.Time

	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshResult is returned by [Engine.Refresh]. The refresh token is not
// rotated; callers keep presenting the one issued at login.
type RefreshResult struct {
	SessionID        string
	SessionToken     string
	SessionExpiresAt time.Time
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	PlanTier string
}

// PrincipalDirectory is the durable-store contract for principal lookups.
// Implementations must normalize email matching case-insensitively and return
// [ErrPrincipalNotFound] for absent rows.
type PrincipalDirectory interface {
	FindStandardByEmail(ctx context.Context, email string) (*StandardAccount, error)
	FindStandardByID(ctx context.Context, id string) (*StandardAccount, error)
	FindElevatedByEmail(ctx context.Context, email string) (*ElevatedAccount, error)
	FindElevatedByID(ctx context.Context, id string) (*ElevatedAccount, error)
	CreateStandard(ctx context.Context, account *StandardAccount) error
}

// SessionRecords is the durable-store contract for session rows. Keyed lookups
// only; no joins are required beyond principal-kind disambiguation.
type SessionRecords interface {
	Insert(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	UpdateTokens(ctx context.Context, sessionID, sessionToken string, sessionExpiresAt time.Time) error
	MarkInvalid(ctx context.Context, sessionID string) error
}

// Bookkeeper receives fire-and-forget status updates for elevated principals.
// Failures are swallowed and logged by the Engine; they never surface to a
// request.
type Bookkeeper interface {
	RecordElevatedSeen(ctx context.Context, id, origin string) error
}
