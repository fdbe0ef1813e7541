package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrInvalidRecord is returned when the database rejects a row because of a
// NOT NULL or CHECK constraint.
var ErrInvalidRecord = errors.New("invalid record")

// mapError converts pgconn errors to repository errors.
// Context errors pass through so callers can tell a timeout from a rejection.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502", "23514": // not_null_violation, check_violation
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrInvalidRecord)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
