// Package errors provides the API error model of the gradfit service:
// JSON-RPC error codes, HTTP status mapping and captured stack traces.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeServer         = -32000
	CodeNotFound       = -32004
	CodeConflict       = -32009
)

// Error is an API failure: a JSON-RPC code, a client-facing message, the
// RPC method or route it came from and the call site that created it.
type Error struct {
	Code      int
	Message   string
	Operation string
	Err       error
	Stack     []string
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Operation != "" {
		parts = append(parts, "operation="+e.Operation)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// WithOperation records the RPC method or route and returns e.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// StackTrace lists the frames outside this package, innermost first.
func (e *Error) StackTrace() []string { return e.Stack }

// PublicMessage is the text sent to clients: the message, followed by the
// cause for client errors. Server-side causes are not exposed.
func (e *Error) PublicMessage() string {
	if e.Err == nil || e.HTTPStatus() >= http.StatusInternalServerError {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

// HTTPStatus maps the JSON-RPC code to an HTTP status for REST responses.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams:
		return http.StatusBadRequest
	case CodeMethodNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New returns an error with the given code and message.
func New(code int, msg string) *Error {
	return &Error{Code: code, Message: msg, Stack: callers()}
}

// Errorf is New with a formatted message.
func Errorf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Stack: callers()}
}

// Wrap wraps an error with a code and message. If err is already an *Error
// its code and stack are kept and only the message is replaced.
func Wrap(err error, code int, msg string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		if msg != "" {
			e.Message = msg
		}
		return e
	}

	return &Error{Code: code, Message: msg, Err: err, Stack: callers()}
}

// FromError classifies any error returned by the service layers. Rejected
// input becomes CodeInvalidParams; anything unrecognised is CodeServer.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	if optimization.IsInvalidInput(err) {
		return &Error{Code: CodeInvalidParams, Message: "invalid params", Err: err, Stack: callers()}
	}
	return &Error{Code: CodeServer, Message: "server error", Err: err, Stack: callers()}
}

// InvalidParams is shorthand for a CodeInvalidParams error.
func InvalidParams(format string, args ...interface{}) *Error {
	return Errorf(CodeInvalidParams, format, args...)
}

// NotFound is shorthand for a CodeNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return Errorf(CodeNotFound, format, args...)
}

// callers renders the stack of the constructor's caller, dropping runtime
// frames and this package's own.
func callers() []string {
	pcs := make([]uintptr, 32)
	pcs = pcs[:runtime.Callers(3, pcs)]
	if len(pcs) == 0 {
		return nil
	}

	var stack []string
	frames := runtime.CallersFrames(pcs)
	for frame, more := frames.Next(); ; frame, more = frames.Next() {
		if !strings.HasPrefix(frame.Function, "runtime.") && !strings.Contains(frame.File, "internal/errors/") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			return stack
		}
	}
}
