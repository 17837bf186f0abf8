package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies every failure the pipeline can surface.
type Kind string

const (
	// Stage failures
	KindInvalidImage         Kind = "INVALID_IMAGE"
	KindInvalidConfiguration Kind = "INVALID_CONFIGURATION"
	KindUnsupportedLanguage  Kind = "UNSUPPORTED_LANGUAGE"

	// Engine failures
	KindEngineNotFound Kind = "ENGINE_NOT_FOUND"
	KindEngineTimeout  Kind = "ENGINE_TIMEOUT"
	KindEngineFailure  Kind = "ENGINE_FAILURE"

	// Orchestration and persistence
	KindBusy               Kind = "BUSY"
	KindPersistenceFailure Kind = "PERSISTENCE_FAILURE"
)

// Error is a structured pipeline error. Detail carries raw engine
// diagnostics or driver output; it is supplementary, never the primary
// user-facing message.
type Error struct {
	Kind      Kind
	Message   string
	Detail    string
	Timestamp time.Time
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns the human-readable message for display. Terminal
// states are always presented through this, with Detail shown separately.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindInvalidImage:
		return "The image could not be opened or decoded."
	case KindInvalidConfiguration:
		return fmt.Sprintf("Invalid OCR configuration: %s.", e.Message)
	case KindUnsupportedLanguage:
		return fmt.Sprintf("Spell checking is not available for language %q.", e.Message)
	case KindEngineNotFound:
		return "The OCR engine was not found. Check that tesseract is installed and its path is configured."
	case KindEngineTimeout:
		return "Text recognition timed out."
	case KindEngineFailure:
		return "The OCR engine reported an error."
	case KindBusy:
		return "A recognition run is already in progress."
	case KindPersistenceFailure:
		return "The result could not be saved to history."
	default:
		return e.Message
	}
}

// Factory functions for the pipeline error taxonomy

func NewInvalidImage(source string, cause error) *Error {
	return &Error{
		Kind:      KindInvalidImage,
		Message:   fmt.Sprintf("cannot decode image %q", source),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewInvalidConfiguration(msg string) *Error {
	return &Error{
		Kind:      KindInvalidConfiguration,
		Message:   msg,
		Timestamp: time.Now(),
	}
}

func NewUnsupportedLanguage(lang string) *Error {
	return &Error{
		Kind:      KindUnsupportedLanguage,
		Message:   lang,
		Timestamp: time.Now(),
	}
}

func NewEngineNotFound(path string, cause error) *Error {
	return &Error{
		Kind:      KindEngineNotFound,
		Message:   fmt.Sprintf("engine binary %q not found", path),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewEngineTimeout(limit time.Duration, cause error) *Error {
	return &Error{
		Kind:      KindEngineTimeout,
		Message:   fmt.Sprintf("recognition exceeded %v", limit),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewEngineFailure(detail string, cause error) *Error {
	return &Error{
		Kind:      KindEngineFailure,
		Message:   "engine invocation failed",
		Detail:    detail,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewBusy() *Error {
	return &Error{
		Kind:      KindBusy,
		Message:   "a run is already in progress",
		Timestamp: time.Now(),
	}
}

func NewPersistenceFailure(cause error) *Error {
	return &Error{
		Kind:      KindPersistenceFailure,
		Message:   "failed to append history record",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// KindOf walks the error chain and returns the Kind of the first *Error
// found, or "" when the chain carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the display message for any error: the
// structured message when err carries an *Error, err.Error() otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UserMessage()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
