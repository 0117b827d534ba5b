package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business rule violation inside the engine.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnknownApproach   = "UNKNOWN_APPROACH"
)

var (
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrConsentNotFound       = errors.New("consent not found")
	ErrAuthorisationNotFound = errors.New("authorisation not found")

	// ErrResourceExists reports an insert that hit an already stored id.
	ErrResourceExists = errors.New("resource already exists")
)

func NewInvalidTransitionError(from, to string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// IsErrorCode reports whether err is a DomainError carrying the given code.
func IsErrorCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
