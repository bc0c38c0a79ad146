// Package apperrors defines the error taxonomy shared by every operation:
// not found, unauthorized, validation and constraint violation.
//
// Stores wrap driver errors with FromDB; services return the sentinels
// (wrapped with context) and the transport layer maps them with HTTPStatus
// or Code. Anything else is an internal error.
package apperrors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a unique lookup by id finds no row
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when an authorization policy denies the caller
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned for malformed or missing input
	ErrValidation = errors.New("validation failed")
	// ErrConstraintViolation is returned when the store rejects a write
	ErrConstraintViolation = errors.New("constraint violation")
)

// Error codes surfaced to API clients
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConstraint   = "CONSTRAINT_VIOLATION"
	CodeInternal     = "INTERNAL"
)

// Postgres integrity constraint violation codes (class 23)
const (
	pqNotNullViolation    = "23502"
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
)

// NotFound returns an ErrNotFound wrapped with the entity and id
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Validation returns an ErrValidation wrapped with a descriptive message
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Unauthorized returns an ErrUnauthorized naming the denied operation
func Unauthorized(operation string) error {
	return fmt.Errorf("%s: %w", operation, ErrUnauthorized)
}

// FromDB translates driver errors into the taxonomy. sql.ErrNoRows becomes
// ErrNotFound, integrity violations become ErrConstraintViolation and
// everything else is returned unchanged.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqForeignKeyViolation, pqCheckViolation, pqNotNullViolation:
			detail := pqErr.Message
			if pqErr.Constraint != "" {
				detail = fmt.Sprintf("%s (%s)", pqErr.Message, pqErr.Constraint)
			}
			return fmt.Errorf("%w: %s", ErrConstraintViolation, detail)
		}
	}

	return err
}

// HTTPStatus maps an error to the HTTP status code the REST API returns
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConstraintViolation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code maps an error to a stable machine-readable code
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConstraintViolation):
		return CodeConstraint
	default:
		return CodeInternal
	}
}

// IsInternal reports whether err falls outside the taxonomy
func IsInternal(err error) bool {
	return Code(err) == CodeInternal
}
