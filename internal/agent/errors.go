package agent

import (
	"fmt"
)

// FailureKind classifies why an analysis failed. Kinds are persisted
// verbatim in the job row's error_kind column.
type FailureKind string

const (
	KindInvalidPayload  FailureKind = "invalid_payload"
	KindProviderTimeout FailureKind = "provider_timeout"
	KindProviderError   FailureKind = "provider_error"
	KindInvalidResult   FailureKind = "invalid_result"
	KindInternal        FailureKind = "internal"
)

// Error is the typed failure an agent raises instead of letting a raw
// error escape. The worker converts it into a stored FAILURE state.
type Error struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed agent failure.
func NewError(kind FailureKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a typed agent failure preserving the cause.
func WrapError(kind FailureKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
