package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// pgConstraintError reports the SQLSTATE and constraint of a Postgres
// integrity error, if err is one.
func pgConstraintError(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", "", false
	}
	return pgErr.Code, pgErr.ConstraintName, true
}
