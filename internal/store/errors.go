package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/audience/internal/core"
)

var (
	// ErrConflict is returned when a write would break a uniqueness rule.
	ErrConflict = errors.New("duplicate key value violates unique constraint")

	// ErrMissingReference is returned when a contact names a group that
	// does not exist.
	ErrMissingReference = errors.New("violates foreign key constraint")
)

// PostgreSQL error codes the store branches on.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// mapPgError converts driver errors into the store's error values. op names
// the failed operation for the wrapped message.
func mapPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == "contact_groups_name_key" {
				return core.ErrDuplicateName
			}
			return fmt.Errorf("%w: %s", ErrConflict, constraintSubject(pgErr.ConstraintName))
		case pgForeignKeyViolation, pgNotNullViolation:
			return fmt.Errorf("%w: group does not exist", ErrMissingReference)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func constraintSubject(name string) string {
	switch name {
	case "contacts_email_key":
		return "email already used"
	case "contacts_mobile_key":
		return "mobile already used"
	default:
		return name
	}
}
