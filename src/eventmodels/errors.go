package eventmodels

import "fmt"

// ValidationError blocks a submission locally, before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// DomainError is an error string embedded in a verify or order
// response. It is user-visible and returns the submission machine to
// idle; the draft is preserved so the user can correct and retry.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// TransportError covers REST and stream failures, including the bounded
// wait on verify/confirm round trips expiring.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}

	return e.Op
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{
		Op:    op,
		Cause: cause,
	}
}
