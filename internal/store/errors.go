package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUniqueViolation surfaces a unique-constraint failure, e.g. a second
	// membership row for the same (publication, member) pair.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation surfaces a write referencing a missing row.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrNotNullViolation surfaces a write missing a required field.
	ErrNotNullViolation = errors.New("not null violation")

	// ErrNotPending is returned when an invitation status transition is
	// attempted on an invitation that is no longer pending.
	ErrNotPending = errors.New("invitation is not pending")
)

// mapPgError translates Postgres constraint failures into sentinel errors
// the context layer can classify. Other errors pass through unchanged.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.SQLState() {
	case "23505":
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrUniqueViolation)
	case "23503":
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrForeignKeyViolation)
	case "23502":
		return fmt.Errorf("%s: %w", pgErr.ColumnName, ErrNotNullViolation)
	default:
		return err
	}
}
