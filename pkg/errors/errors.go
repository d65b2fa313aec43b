// Package errors provides classified, structured errors for the paths in
// docring that are allowed to fail: configuration validation, mainly.
// The request/response path itself never returns a Go error: per the
// design's error taxonomy, in-band outcomes (cache miss, document not
// found) surface only through the Response value, while a queue overflow
// is only logged and removing an unknown server is a silent no-op.
package errors

import "fmt"

// Class classifies why an operation failed, so callers can decide whether
// it's worth retrying or surfacing to an operator untouched.
type Class int

const (
	ClassUnknown Class = iota
	ClassValidation
	ClassCapacity
	ClassNotFound
	ClassInvariant
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassCapacity:
		return "capacity"
	case ClassNotFound:
		return "not_found"
	case ClassInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// ClassifiedError is an error tagged with a Class and a machine-readable
// Code, in the shape the wider developer-mesh workspace uses for its own
// errors.
type ClassifiedError struct {
	Code    string
	Message string
	Class   Class
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Class, e.Message)
}

// New builds a ClassifiedError.
func New(class Class, code, message string) *ClassifiedError {
	return &ClassifiedError{Code: code, Message: message, Class: class}
}

// Newf builds a ClassifiedError with a formatted message.
func Newf(class Class, code, format string, args ...interface{}) *ClassifiedError {
	return New(class, code, fmt.Sprintf(format, args...))
}
