package service

import (
	"errors"
	"fmt"
)

// ErrWorkspaceExpiredOrMissing signals that no usable pending-order workspace
// exists for the session. Recoverable: the caller redirects the buyer back to
// ticket selection.
var ErrWorkspaceExpiredOrMissing = errors.New("checkout workspace missing or expired")

// GenericPaymentErrorMessage is the only text a buyer ever sees for an
// unexpected gateway fault. Internal detail stays in the logs.
const GenericPaymentErrorMessage = "Sorry, there was an error processing your payment. Please try again."

// ValidationError carries field-level messages back to the buyer. Expected
// control flow, never logged as a fault.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// NewValidationError builds a single-field validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// AsValidationError unwraps a ValidationError if err is one
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
