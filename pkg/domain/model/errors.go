package model

import (
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Risk configuration errors
var (
	ErrValidation      = goerr.New("risk configuration is invalid")
	ErrNotFound        = goerr.New("risk configuration not found")
	ErrPrecondition    = goerr.New("precondition failed")
	ErrPersistence     = goerr.New("failed to persist risk configuration")
	ErrVersionConflict = goerr.New("risk configuration was modified concurrently")
	ErrScoreOutOfRange = goerr.New("score is not covered by any score level")
	ErrInvalidScore    = goerr.New("invalid score input")
)

// Context keys for error values
const (
	OrganizationIDKey  = "organization_id"
	ConfigurationIDKey = "configuration_id"
	ScoreKey           = "score"
	VersionKey         = "version"
	ExpectedVersionKey = "expected_version"
)

// ValidationError carries every violation found by ValidateConfiguration so
// callers can render field-level feedback.
type ValidationError struct {
	Errors []string
}

// NewValidationError returns nil when there are no violations
func NewValidationError(errs []string) *ValidationError {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// PersistenceError wraps a storage failure so that it matches ErrPersistence
// while keeping the original cause. Domain errors such as ErrNotFound and
// ErrVersionConflict pass through with only the message added.
func PersistenceError(err error, msg string, opts ...goerr.Option) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrPersistence) {
		return goerr.Wrap(err, msg, opts...)
	}
	return goerr.Wrap(errors.Join(ErrPersistence, err), msg, opts...)
}
