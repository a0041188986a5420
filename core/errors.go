package core

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is an input error that validator tags cannot express, e.g. an assignment that would already be expired.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// FieldErrors returns the message of every invalid field, keyed by its JSON name.
// ok is false when err is not an input error, or carries no field.
func FieldErrors(err error, translator ut.Translator) (fields map[string]string, ok bool) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields = make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return fields, true
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) && len(valErr.Fields) > 0 {
		fields = make(map[string]string, len(valErr.Fields))
		for _, fe := range valErr.Fields {
			fields[fe.Field] = fe.Error
		}
		return fields, true
	}
	return nil, false
}

// IsValidationError reports whether err comes from invalid input.
func IsValidationError(err error) bool {
	var vErrs validator.ValidationErrors
	var valErr *ValidationError
	return errors.As(err, &vErrs) || errors.As(err, &valErr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
