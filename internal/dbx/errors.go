package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsUniqueViolation reports whether err (or anything it wraps) is a Postgres
// unique-constraint violation raised through the pgx driver.
func IsUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// IsInvalidInput reports whether Postgres rejected a parameter as malformed
// for its column type, e.g. "abc" bound to a uuid column.
func IsInvalidInput(err error) bool {
	return hasCode(err, invalidTextRepresentation)
}
