package form

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for form errors.
var (
	ErrUnknownField  = errors.New("unknown field")
	ErrValidation    = errors.New("form validation failed")
	ErrSerialization = errors.New("form serialization failed")
)

// UnknownFieldError reports an edit addressed to a key outside the schema.
type UnknownFieldError struct {
	Key string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Key)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }

// ValidationError lists the keys that are empty or not finite numbers, in schema order.
type ValidationError struct {
	Keys []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Keys, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SerializationError is returned when Serialize is called on a state that does not validate.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize field %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }
