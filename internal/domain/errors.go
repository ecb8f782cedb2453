package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel validation errors, in the teacher's domain/validation.go style.
var (
	ErrCourierIDRequired = errors.New("courier ID is required")
	ErrOrderIDRequired   = errors.New("order ID is required")
	ErrInvalidLocation   = errors.New("invalid location coordinates")
	ErrInvalidStatus     = errors.New("invalid status transition")

	// ErrCourierNotFound and ErrOrderNotFound are returned by Repository
	// lookups, distinct from the validation errors above.
	ErrCourierNotFound = errors.New("courier not found")
	ErrOrderNotFound   = errors.New("order not found")

	// ErrBatchNotFound is returned by BatchRepository.FindByID when no
	// record exists yet for the given batch id — the expected outcome the
	// first time a window is processed.
	ErrBatchNotFound = errors.New("batch record not found")
)

// PreconditionFailure reports that an operation's required state did not
// hold. It carries no implication of a bug: callers are expected to check
// for it (errors.As) and surface a reason to their own caller without
// mutating anything.
type PreconditionFailure struct {
	Op     string
	Reason string
}

func (e *PreconditionFailure) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Reason)
}

// ConcurrencyConflict reports that a Repository write observed an entity
// that had changed since it was read.
type ConcurrencyConflict struct {
	EntityID uuid.UUID
	Reason   string
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("concurrency conflict on %s: %s", e.EntityID, e.Reason)
}

// RepositoryUnavailable wraps a transient I/O failure from the Repository.
type RepositoryUnavailable struct {
	Op  string
	Err error
}

func (e *RepositoryUnavailable) Error() string {
	return fmt.Sprintf("repository unavailable during %s: %v", e.Op, e.Err)
}

func (e *RepositoryUnavailable) Unwrap() error { return e.Err }

// ConfigurationError reports an invalid configuration value. It is fatal at
// startup — callers should log.Fatal on it, never retry.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}
