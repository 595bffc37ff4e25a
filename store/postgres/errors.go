package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tmaxwell-dev/authgate"
)

// mapUniqueViolation translates a unique-index violation into
// [authgate.ErrAccountExists] so a registration racing another insert still
// reports the friendly duplicate error. Other errors pass through untouched.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return authgate.ErrAccountExists
	}
	return err
}
