package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP mapping and client behavior.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidState
	KindPolicy
	KindInvalidInput
	KindDependency
)

// Machine-readable codes the client reacts to distinctly.
const (
	CodeNeedTestPassword   = "NEED_TEST_PASSWORD"
	CodeWrongTestPassword  = "WRONG_TEST_PASSWORD"
	CodeMaxAttemptsReached = "MAX_ATTEMPTS_REACHED"
	CodeTestNotAvailable   = "TEST_NOT_AVAILABLE"
	CodeAlreadySubmitted   = "ALREADY_SUBMITTED"
	CodeScoresNotReleased  = "SCORES_NOT_RELEASED"
	CodeTestNotEditable    = "TEST_NOT_EDITABLE"
)

// Error is the typed error surfaced by every engine operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: "UNAUTHENTICATED", Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: message}
}

func InvalidState(code, message string) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Message: message}
}

func Policy(code, message string) *Error {
	return &Error{Kind: KindPolicy, Code: code, Message: message}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Code: "INVALID_INPUT", Message: message}
}

// Dependency wraps a persistence or provider failure. The full cause is for
// server-side logs only; Message is safe to show.
func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Code: "DEPENDENCY_FAILURE", Message: message, Err: err}
}

// KindOf extracts the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// CodeOf extracts the machine-readable code of err, if any.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
