package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/healthsync/healthsync/pkg/apperrors"
)

const (
	uniqueViolation     = "23505"
	checkViolation      = "23514"
	foreignKeyViolation = "23503"
)

// MapError translates pgx errors into application errors. notFound is the
// message used when no row matched. Unrecognised errors are wrapped as internal.
func MapError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return &apperrors.AppError{Type: apperrors.TypeConflict, Message: "Resource already exists", Err: err}
		case checkViolation:
			return &apperrors.AppError{Type: apperrors.TypeValidation, Message: "Value violates constraint " + pgErr.ConstraintName, Err: err}
		case foreignKeyViolation:
			return &apperrors.AppError{Type: apperrors.TypeValidation, Message: "Referenced resource does not exist", Err: err}
		}
	}

	return apperrors.Internal("database error", err)
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
