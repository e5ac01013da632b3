package core

import "github.com/pkg/errors"

// FieldError rejects one input field, named as the client sent it.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned when input is refused before anything is written.
// Clients get Fields as a field -> message map, or Err's message when there are no fields.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

// NewFieldError refuses a single field.
func NewFieldError(field, msg string) error {
	return NewValidationError(nil, FieldError{Field: field, Error: msg})
}

func (err ValidationError) Error() string {
	switch {
	case err.Err != nil:
		return err.Err.Error()
	case len(err.Fields) > 0:
		return err.Fields[0].Field + ": " + err.Fields[0].Error
	default:
		return "invalid input"
	}
}

// FieldMap indexes the field errors by field; the last message wins for a repeated field.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	flds := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

// shutdownError means the service cannot keep answering, e.g. its database went away.
type shutdownError struct {
	reason string
}

func NewShutdownError(reason string) error {
	return &shutdownError{reason: reason}
}

func (s *shutdownError) Error() string {
	return "shutting down: " + s.reason
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdownError)
	return ok
}
