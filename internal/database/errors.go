package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// mapError converts driver errors into forum kinds; notFound is used for missing rows.
func mapError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return forum.NotFoundf("%s", notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return forum.Conflictf("%s", conflictMessage(pgErr.ConstraintName))
	}
	return mapContention(err)
}

// mapContention turns transactions aborted by postgres lock arbitration into Conflict
// so clients see a retryable 409 rather than a 500.
func mapContention(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case deadlockDetected, serializationFailure:
		return forum.Conflictf("Concurrent update, retry")
	}
	return err
}

func conflictMessage(constraint string) string {
	switch constraint {
	case "idx_users_username":
		return "Username already registered"
	case "idx_users_email":
		return "Email already registered"
	case "idx_answers_one_accepted":
		return "Question already has an accepted answer"
	}
	return "Resource already exists"
}
