// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies conversion failures.
type ErrorKind int

const (
	// Unsupported means the operation is well-formed, but it (or the exact combination of shapes, dtypes and
	// parameters) cannot be converted for the selected backend.
	Unsupported ErrorKind = iota

	// Malformed means the model itself is invalid: missing operands, wrong operand shapes, bad values.
	Malformed
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case Unsupported:
		return "Unsupported"
	case Malformed:
		return "Malformed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ConversionError is the error returned by converters.
type ConversionError struct {
	Kind ErrorKind

	// Operation is the name of the operation (or policy) that failed.
	Operation string

	// Reason is a human-readable description of the failure.
	Reason string

	// Cause is an optional underlying error.
	Cause error
}

// Error implements error.
func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Operation, e.Reason)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the Cause.
func (e *ConversionError) Unwrap() error { return e.Cause }

// ErrActivationFailed is the cause of the errors returned when the fused activation of an operation
// cannot be built.
var ErrActivationFailed = errors.New("activation processing failed")

func newError(kind ErrorKind, cause error, operation, format string, args ...any) error {
	return errors.WithStack(&ConversionError{
		Kind:      kind,
		Operation: operation,
		Reason:    fmt.Sprintf(format, args...),
		Cause:     cause,
	})
}

// Unsupportedf returns an Unsupported ConversionError with a stack trace.
func Unsupportedf(operation, format string, args ...any) error {
	return newError(Unsupported, nil, operation, format, args...)
}

// Malformedf returns a Malformed ConversionError with a stack trace.
func Malformedf(operation, format string, args ...any) error {
	return newError(Malformed, nil, operation, format, args...)
}

// WrapUnsupported is like Unsupportedf, with cause attached.
func WrapUnsupported(cause error, operation, format string, args ...any) error {
	return newError(Unsupported, cause, operation, format, args...)
}

// WrapMalformed is like Malformedf, with cause attached.
func WrapMalformed(cause error, operation, format string, args ...any) error {
	return newError(Malformed, cause, operation, format, args...)
}

// AsConversionError returns the ConversionError in err's chain, if any.
func AsConversionError(err error) (*ConversionError, bool) {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr, true
	}
	return nil, false
}

// IsUnsupported returns whether err is (or wraps) an Unsupported ConversionError.
func IsUnsupported(err error) bool {
	convErr, ok := AsConversionError(err)
	return ok && convErr.Kind == Unsupported
}

// IsMalformed returns whether err is (or wraps) a Malformed ConversionError.
func IsMalformed(err error) bool {
	convErr, ok := AsConversionError(err)
	return ok && convErr.Kind == Malformed
}
