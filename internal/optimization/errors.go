package optimization

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is the sentinel wrapped by every error caused by bad
// caller input: an empty dataset, mismatched lengths, a negative iteration
// count, a non-positive learning rate and the like.
var ErrInvalidInput = errors.New("invalid input")

// Error is the error type returned by the solvers and objectives. It
// records where a failure happened so that wrapped chains read as
// "component: op: message: cause".
type Error struct {
	// Message describes what failed.
	Message string
	// Op names the function or method, e.g. "GradientDescent.Solve".
	Op string
	// Component names the solver or evaluator, e.g. "gradient_descent".
	Component string
	// Err is the cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	for _, s := range []string{e.Component, e.Op, e.Message} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation sets Op and returns e for chaining.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent sets Component and returns e for chaining.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// InvalidInputf reports rejected caller input.
// The result satisfies errors.Is(err, ErrInvalidInput).
func InvalidInputf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     ErrInvalidInput,
	}
}

// WrapError attaches message to err. It returns nil when err is nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// WrapErrorf is WrapError with a formatted message.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsOptimizationError returns the outermost *Error in err's chain.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsInvalidInput reports whether err was caused by rejected caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
