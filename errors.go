package agent

import (
	"errors"
	"fmt"
)

// ErrorCode is the high-level category of a dispatcher error. It does not
// appear on the wire directly; Error.Error() is what gets embedded in a
// response envelope's "error" field.
type ErrorCode string

const (
	ErrCodeArgument   ErrorCode = "argument error"
	ErrCodeState      ErrorCode = "state precondition"
	ErrCodeCapability ErrorCode = "capability precondition"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCompletion ErrorCode = "completion failure"
	ErrCodeCore       ErrorCode = "core failure"
	ErrCodeIO         ErrorCode = "I/O failure"
	ErrCodeUnknown    ErrorCode = "unknown command"
)

// Error is a structured dispatcher error. Its Msg is exactly the string
// placed in a response envelope's "error" field, per the error strings
// catalog: missing fields, state preconditions, capability preconditions,
// timeouts, completion failures, and core/IO failures.
type Error struct {
	Op    string // command name being handled, e.g. "save_state"
	Code  ErrorCode
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code && e.Msg == te.Msg
}

// NewError builds a structured error whose Error() text is msg verbatim —
// this is what ends up in the response envelope's "error" field.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// ArgError reports a missing or invalid request field.
func ArgError(op, msg string) *Error {
	return NewError(op, ErrCodeArgument, msg)
}

// MissingField reports a required field absent from the request.
func MissingField(op, field string) *Error {
	return NewError(op, ErrCodeArgument, fmt.Sprintf("missing %s", field))
}

// StateError reports a precondition on the emulator's run state.
func StateError(op, msg string) *Error {
	return NewError(op, ErrCodeState, msg)
}

// CapabilityError reports a missing core capability.
func CapabilityError(op, msg string) *Error {
	return NewError(op, ErrCodeCapability, msg)
}

// TimeoutError reports a completion wait that exceeded its budget.
func TimeoutError(op string) *Error {
	return NewError(op, ErrCodeTimeout, fmt.Sprintf("%s timed out", op))
}

// CompletionFailedError reports a completion callback with last_result == 0.
func CompletionFailedError(op string) *Error {
	return NewError(op, ErrCodeCompletion, fmt.Sprintf("%s failed", op))
}

// CoreError reports a non-success numeric status from core_do.
func CoreError(op string, status int) *Error {
	return NewError(op, ErrCodeCore, fmt.Sprintf("core command failed (%d)", status))
}

// CoreReadFailedError reports a Core.ReadScreen call returning an error,
// distinct from CoreError's numeric-status message: the original reports
// this as "<what> failed" (e.g. "read_screen failed"), not "core command
// failed (N)".
func CoreReadFailedError(op, what string, inner error) *Error {
	return &Error{Op: op, Code: ErrCodeCore, Msg: fmt.Sprintf("%s failed", what), Inner: inner}
}

// IOError wraps a filesystem failure encountered writing a capture artifact.
func IOError(op, msg string, inner error) *Error {
	return &Error{Op: op, Code: ErrCodeIO, Msg: msg, Inner: inner}
}

// UnknownCommandError reports an unrecognized cmd string.
func UnknownCommandError() *Error {
	return NewError("", ErrCodeUnknown, "unknown command")
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
