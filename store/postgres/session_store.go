package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmaxwell-dev/authgate"
)

// SessionStore implements authgate.SessionRecords on PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore wraps a connection pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

const sessionColumns = `
	session_id, principal_kind, principal_id,
	session_token, refresh_token,
	session_expires_at, refresh_expires_at, valid,
	origin, user_agent, created_at, updated_at
`

func scanSession(row pgx.Row) (*authgate.Session, error) {
	var (
		sess authgate.Session
		kind int16
	)
	err := row.Scan(
		&sess.SessionID,
		&kind,
		&sess.Principal.ID,
		&sess.SessionToken,
		&sess.RefreshToken,
		&sess.SessionExpiresAt,
		&sess.RefreshExpiresAt,
		&sess.Valid,
		&sess.Origin,
		&sess.UserAgent,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authgate.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.Principal.Kind = authgate.PrincipalKind(kind)
	return &sess, nil
}

// Insert writes a new session row.
func (s *SessionStore) Insert(ctx context.Context, session *authgate.Session) error {
	query := `
		INSERT INTO sessions (
			session_id, principal_kind, principal_id,
			session_token, refresh_token,
			session_expires_at, refresh_expires_at, valid,
			origin, user_agent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.pool.Exec(ctx, query,
		session.SessionID,
		int16(session.Principal.Kind),
		session.Principal.ID,
		session.SessionToken,
		session.RefreshToken,
		session.SessionExpiresAt,
		session.RefreshExpiresAt,
		session.Valid,
		session.Origin,
		session.UserAgent,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// FindByID loads a session row by its primary key. Expired or invalidated
// rows are still returned; liveness is the engine's call.
func (s *SessionStore) FindByID(ctx context.Context, sessionID string) (*authgate.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1`
	return scanSession(s.pool.QueryRow(ctx, query, sessionID))
}

// FindByRefreshToken loads a session by exact refresh-token match.
func (s *SessionStore) FindByRefreshToken(ctx context.Context, refreshToken string) (*authgate.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token = $1`
	return scanSession(s.pool.QueryRow(ctx, query, refreshToken))
}

// UpdateTokens replaces the session token after a refresh. Last write wins;
// concurrent refreshes are both accepted.
func (s *SessionStore) UpdateTokens(ctx context.Context, sessionID, sessionToken string, sessionExpiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET session_token = $2,
		    session_expires_at = $3,
		    updated_at = now()
		WHERE session_id = $1
	`
	tag, err := s.pool.Exec(ctx, query, sessionID, sessionToken, sessionExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update session tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authgate.ErrSessionNotFound
	}
	return nil
}

// MarkInvalid soft-deletes a session. Unknown and already-invalid ids
// succeed: invalidation is idempotent and the row stays as audit trail.
func (s *SessionStore) MarkInvalid(ctx context.Context, sessionID string) error {
	query := `
		UPDATE sessions
		SET valid = FALSE,
		    updated_at = now()
		WHERE session_id = $1 AND valid = TRUE
	`
	if _, err := s.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}
