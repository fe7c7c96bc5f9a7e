// Package errors provides the error types used across predsql.
//
// All errors follow Go 1.13+ wrapping conventions: typed errors are matched
// with errors.As, sentinel errors with errors.Is, and every constructor here
// produces values that survive fmt.Errorf("%w") chains. Messages carry the
// "predsql: " prefix so log lines and CLI output identify their origin.
//
// The package re-exports New, Newf, Wrap and Wrapf from cockroachdb/errors,
// which attaches stack traces recoverable with %+v formatting.
package errors

import (
	"fmt"

	cockroach "github.com/cockroachdb/errors"
)

// prefix marks every error message produced by this module.
const prefix = "predsql: "

// Sentinel errors for errors.Is checks.
var (
	// ErrEmptyData is returned when an operation receives no rows or columns.
	ErrEmptyData = cockroach.New("empty data")

	// ErrSingularMatrix is returned when a linear solve meets a singular system.
	ErrSingularMatrix = cockroach.New("singular matrix")

	// ErrNotImplemented is returned for recognized but unsupported inputs,
	// such as non-regression objectives in imported models.
	ErrNotImplemented = cockroach.New("not implemented")

	// ErrInvalidModel is wrapped by every malformed portable model document
	// failure: bad envelope, unknown fields, structural violations.
	ErrInvalidModel = cockroach.New("invalid model document")
)

// New returns an error with the supplied message and a stack trace.
func New(msg string) error { return cockroach.New(msg) }

// Newf returns a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return cockroach.Newf(format, args...)
}

// Wrap annotates err with msg, preserving the chain for Is/As.
func Wrap(err error, msg string) error { return cockroach.Wrap(err, msg) }

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return cockroach.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return cockroach.Is(err, target) }

// As finds the first error in err's chain matching target.
func As(err error, target interface{}) bool { return cockroach.As(err, target) }

// DimensionError reports a shape mismatch between expected and actual data.
type DimensionError struct {
	Op       string // operation that detected the mismatch
	Expected int
	Got      int
	Axis     int // 0 = rows/samples, 1 = columns/features
}

// NewDimensionError creates a DimensionError for the given operation.
func NewDimensionError(op string, expected, got, axis int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s%s: dimension mismatch on axis %d: expected %d, got %d",
		prefix, e.Op, e.Axis, e.Expected, e.Got)
}

// NotFittedError is returned when a model method requires a completed Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError creates a NotFittedError for modelName.method.
func NewNotFittedError(modelName, method string) *NotFittedError {
	return &NotFittedError{ModelName: modelName, Method: method}
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s%s.%s: model is not fitted, call Fit first",
		prefix, e.ModelName, e.Method)
}

// ValueError reports an invalid argument or input value.
type ValueError struct {
	Op      string
	Message string
}

// NewValueError creates a ValueError for the given operation.
func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s%s: %s", prefix, e.Op, e.Message)
}

// ModelError wraps a cause (usually a sentinel) with operation context.
type ModelError struct {
	Op      string
	Message string
	Cause   error
}

// NewModelError creates a ModelError wrapping cause.
func NewModelError(op, message string, cause error) *ModelError {
	return &ModelError{Op: op, Message: message, Cause: cause}
}

func (e *ModelError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s%s: %s", prefix, e.Op, e.Message)
	}
	return fmt.Sprintf("%s%s: %s: %v", prefix, e.Op, e.Message, e.Cause)
}

// Unwrap returns the wrapped cause so errors.Is can reach sentinels.
func (e *ModelError) Unwrap() error { return e.Cause }

// UnsupportedModelError is returned when a fitted model cannot be translated
// into a portable model document.
type UnsupportedModelError struct {
	Op       string
	TypeName string // concrete Go type of the rejected model
}

// NewUnsupportedModelError records the concrete type of model.
func NewUnsupportedModelError(op string, model interface{}) *UnsupportedModelError {
	return &UnsupportedModelError{Op: op, TypeName: fmt.Sprintf("%T", model)}
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("%s%s: unsupported model type %s", prefix, e.Op, e.TypeName)
}

// DialectError is returned when SQL generation meets an unknown dialect.
// Generation never falls back silently: an unknown dialect always fails.
type DialectError struct {
	Op      string
	Dialect string
}

// NewDialectError creates a DialectError for the given operation.
func NewDialectError(op, dialect string) *DialectError {
	return &DialectError{Op: op, Dialect: dialect}
}

func (e *DialectError) Error() string {
	return fmt.Sprintf("%s%s: unknown SQL dialect %q", prefix, e.Op, e.Dialect)
}

// Recover converts a panic inside an exported method into an error assigned
// to *errp. Intended use:
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//		defer errors.Recover(&err, "Model.Fit")
//		...
//	}
//
// A normal return leaves *errp untouched.
func Recover(errp *error, op string) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			*errp = cockroach.Wrapf(err, "%s: panic recovered", op)
			return
		}
		*errp = cockroach.Newf("%s: panic recovered: %v", op, r)
	}
}
