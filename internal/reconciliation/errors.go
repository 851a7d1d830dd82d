package reconciliation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidReconciliation matches every ValidationErrors value.
var ErrInvalidReconciliation = errors.New("invalid reconciliation")

// ValidationError reports a problem with a single field of a submission.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ValidationErrors collects every field error of a rejected submission.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalidReconciliation) hold.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidReconciliation
}

// Fields maps each failing field to its message, for field-level rendering.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// OrNil returns nil for an empty list so it can be returned as an error.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// WithPrefix returns a copy with every field name prefixed.
func (v ValidationErrors) WithPrefix(prefix string) ValidationErrors {
	out := make(ValidationErrors, len(v))
	for i, e := range v {
		out[i] = NewValidationError(prefix+e.Field, e.Value, e.Message)
	}
	return out
}
