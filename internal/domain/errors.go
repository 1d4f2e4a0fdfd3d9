package domain

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a row addressed by id, reference or token does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateReference is returned when a payment reference_no is already taken.
	// Callers should generate a new reference and retry.
	ErrDuplicateReference = errors.New("duplicate payment reference")

	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	ErrAlreadyVerified     = errors.New("verification already confirmed")
	ErrVerificationExpired = errors.New("verification expired")

	// ErrIrreversibleMigration is returned when rolling back past a migration
	// that cannot be undone without losing data, unless forced.
	ErrIrreversibleMigration = errors.New("migration is not reversible")
)
