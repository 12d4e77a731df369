package pgstore

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("pgstore: failed to open db connection")
	ErrFailedToParseDBConfig    = errors.New("pgstore: failed to parse db config")
	ErrHealthcheckFailed        = errors.New("pgstore: healthcheck failed, connection is not available")
	ErrFailedToApplyMigrations  = errors.New("pgstore: failed to apply migrations")
	ErrUnknownMigrationCommand  = errors.New("pgstore: unknown migration command")
)

// unique_violation
const codeUniqueViolation = "23505"

// IsNotFoundError reports whether err is a query that returned no rows.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports whether err is a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
