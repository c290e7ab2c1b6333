package pass

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes pass manager failures.
type ErrorCode string

const (
	// ErrCodeAnchorMismatch indicates a pass or pipeline attached under an
	// incompatible anchor.
	ErrCodeAnchorMismatch ErrorCode = "ANCHOR_MISMATCH"

	// ErrCodeSyntax indicates malformed pipeline text.
	ErrCodeSyntax ErrorCode = "SYNTAX"

	// ErrCodeUnknownPass indicates a mnemonic missing from the registry.
	ErrCodeUnknownPass ErrorCode = "UNKNOWN_PASS"

	// ErrCodeInvalidOptions indicates a pass rejected its option string.
	ErrCodeInvalidOptions ErrorCode = "INVALID_OPTIONS"

	// ErrCodeDialect indicates a dependent dialect could not be loaded.
	ErrCodeDialect ErrorCode = "DIALECT"

	// ErrCodeInitialize indicates a pass failed to initialize.
	ErrCodeInitialize ErrorCode = "INITIALIZE_FAILED"

	// ErrCodePassFailed indicates a pass signalled failure during Run.
	ErrCodePassFailed ErrorCode = "PASS_FAILED"

	// ErrCodeClosed indicates use of a closed PassManager.
	ErrCodeClosed ErrorCode = "CLOSED"
)

// Error is returned by every failing pass manager operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Pass is the mnemonic of the pass involved, if any.
	Pass string

	// Op is the operation kind involved, if any.
	Op string

	// Column is the 1-based column in pipeline text, or 0.
	Column int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAnchorMismatch reports whether err is a structural anchor mismatch.
func IsAnchorMismatch(err error) bool { return CodeOf(err) == ErrCodeAnchorMismatch }

// IsSyntaxError reports whether err is a pipeline grammar error.
func IsSyntaxError(err error) bool { return CodeOf(err) == ErrCodeSyntax }

// IsUnknownPass reports whether err names an unregistered mnemonic.
func IsUnknownPass(err error) bool { return CodeOf(err) == ErrCodeUnknownPass }

// IsInitializeFailure reports whether err comes from a failed Initialize.
func IsInitializeFailure(err error) bool { return CodeOf(err) == ErrCodeInitialize }

// IsPassFailure reports whether err comes from a pass signalling failure.
func IsPassFailure(err error) bool { return CodeOf(err) == ErrCodePassFailed }
