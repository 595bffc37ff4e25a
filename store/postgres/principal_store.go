package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmaxwell-dev/authgate"
)

// PrincipalStore implements authgate.PrincipalDirectory and
// authgate.Bookkeeper on PostgreSQL.
type PrincipalStore struct {
	pool *pgxpool.Pool
}

// NewPrincipalStore wraps a connection pool.
func NewPrincipalStore(pool *pgxpool.Pool) *PrincipalStore {
	return &PrincipalStore{pool: pool}
}

const standardColumns = `id, email, name, password_hash, role, plan_tier`

func scanStandard(row pgx.Row) (*authgate.StandardAccount, error) {
	var acct authgate.StandardAccount
	err := row.Scan(
		&acct.ID,
		&acct.Email,
		&acct.Name,
		&acct.PasswordHash,
		&acct.Role,
		&acct.PlanTier,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authgate.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to load standard account: %w", err)
	}
	return &acct, nil
}

// FindStandardByEmail looks up a standard account case-insensitively.
func (s *PrincipalStore) FindStandardByEmail(ctx context.Context, email string) (*authgate.StandardAccount, error) {
	query := `SELECT ` + standardColumns + ` FROM standard_accounts WHERE lower(email) = lower($1)`
	return scanStandard(s.pool.QueryRow(ctx, query, email))
}

// FindStandardByID looks up a standard account by primary key.
func (s *PrincipalStore) FindStandardByID(ctx context.Context, id string) (*authgate.StandardAccount, error) {
	query := `SELECT ` + standardColumns + ` FROM standard_accounts WHERE id = $1`
	return scanStandard(s.pool.QueryRow(ctx, query, id))
}

const elevatedColumns = `id, email, name, password_hash, permissions, active, online, current_ip, last_ip`

func scanElevated(row pgx.Row) (*authgate.ElevatedAccount, error) {
	var acct authgate.ElevatedAccount
	err := row.Scan(
		&acct.ID,
		&acct.Email,
		&acct.Name,
		&acct.PasswordHash,
		&acct.Permissions,
		&acct.Active,
		&acct.Online,
		&acct.CurrentIP,
		&acct.LastIP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authgate.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to load elevated account: %w", err)
	}
	return &acct, nil
}

// FindElevatedByEmail looks up an elevated account case-insensitively.
func (s *PrincipalStore) FindElevatedByEmail(ctx context.Context, email string) (*authgate.ElevatedAccount, error) {
	query := `SELECT ` + elevatedColumns + ` FROM elevated_accounts WHERE lower(email) = lower($1)`
	return scanElevated(s.pool.QueryRow(ctx, query, email))
}

// FindElevatedByID looks up an elevated account by primary key.
func (s *PrincipalStore) FindElevatedByID(ctx context.Context, id string) (*authgate.ElevatedAccount, error) {
	query := `SELECT ` + elevatedColumns + ` FROM elevated_accounts WHERE id = $1`
	return scanElevated(s.pool.QueryRow(ctx, query, id))
}

// CreateStandard inserts a new standard account. A duplicate email in this
// namespace maps to authgate.ErrAccountExists via the unique index.
func (s *PrincipalStore) CreateStandard(ctx context.Context, account *authgate.StandardAccount) error {
	query := `
		INSERT INTO standard_accounts (id, email, name, password_hash, role, plan_tier)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.Role,
		account.PlanTier,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); errors.Is(mapped, authgate.ErrAccountExists) {
			return authgate.ErrAccountExists
		}
		return fmt.Errorf("failed to create standard account: %w", err)
	}
	return nil
}

// RecordElevatedSeen updates online/origin bookkeeping for an elevated
// account. The previous origin rolls into last_ip.
func (s *PrincipalStore) RecordElevatedSeen(ctx context.Context, id, origin string) error {
	query := `
		UPDATE elevated_accounts
		SET online = TRUE,
		    last_ip = current_ip,
		    current_ip = $2,
		    updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, id, origin)
	if err != nil {
		return fmt.Errorf("failed to record elevated account activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authgate.ErrPrincipalNotFound
	}
	return nil
}
