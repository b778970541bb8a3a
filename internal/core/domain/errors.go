package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration means the provider secrets are missing. Fatal, never retried.
	ErrConfiguration = errors.New("provider configuration missing")

	ErrDuplicateAccount    = errors.New("account already registered")
	ErrAuthorizationDenied = errors.New("storage policy denied the write")
	ErrEmailUnconfirmed    = errors.New("email not confirmed")

	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrIdentityProvider = errors.New("identity provider failure")
	ErrStorage          = errors.New("profile storage failure")
	ErrInternal         = errors.New("internal error")
)

// FieldViolation describes one failed constraint on one input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every constraint a submission violated.
type ValidationError struct {
	Violations []FieldViolation
}

func NewValidationError(violations ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}
