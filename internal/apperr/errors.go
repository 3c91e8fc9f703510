// Package apperr classifies the error kinds enumerated in spec §7 behind a
// single error type, instead of scattering ad-hoc sentinel errors across
// packages.
//
// Adapted from Chris-Alexander-Pop-microservices-library/pkg/errors —
// trimmed of its HTTPStatus/GRPCStatus mapping, which served an HTTP/gRPC
// surface this system does not have.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes, one per row of spec §7's error table.
const (
	CodeSendFailure       = "TRANSPORT_SEND_FAILURE"
	CodeTimeout           = "TRANSPORT_TIMEOUT"
	CodeMalformedFrame    = "MALFORMED_FRAME"
	CodeNoMajority        = "NO_MAJORITY"
	CodeDivergentDecision = "DIVERGENT_DECISION"
	CodeUnknownKind       = "UNKNOWN_MESSAGE_KIND"
	CodeStaleBallot       = "STALE_BALLOT"
	CodeConfig            = "INVALID_CONFIG"
)

// AppError wraps an error-code with a message and an optional cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Wrap attaches msg as context to err.
func Wrap(err error, msg string) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Code extracts the AppError code from err's chain, if any.
func Code(err error) (string, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// IsFatal reports whether code is one that must surface loudly rather than
// be logged and retried (spec §7: divergent DECIDE is the only such kind).
func IsFatal(code string) bool {
	return code == CodeDivergentDecision
}
