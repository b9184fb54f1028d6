// Package errors provides the error types shared by glyphmark's packages.
//
// Every typed error unwraps to one of the sentinels below, alongside the
// cause it carries, so callers can branch with Is on the sentinel and still
// reach the decoder or driver error. Code turns that classification into the
// stable identifiers used by the API and the session protocol.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported")
	// ErrNotPreserved means annotation changed a document's text content.
	ErrNotPreserved = errors.New("text content not preserved")
)

// Stable error codes.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnsupported  = "UNSUPPORTED"
	CodeNotPreserved = "NOT_PRESERVED"
	CodeInternal     = "INTERNAL_ERROR"
)

// Code classifies err by the sentinel it wraps. Errors wrapping none of them
// are internal.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotPreserved):
		return CodeNotPreserved
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnsupported):
		return CodeUnsupported
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

// chain is the Unwrap result of a typed error: its sentinel, then its cause.
func chain(sentinel, cause error) []error {
	if cause == nil || cause == sentinel {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}

// NotFoundError reports a missing session, element or history run.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() []error { return chain(ErrNotFound, e.Err) }

// ValidationError reports a rejected configuration value, flag or request
// field.
type ValidationError struct {
	Field   string
	Value   string // may be empty when the value is not worth echoing
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() []error { return chain(ErrInvalidInput, e.Err) }

// IOError reports a failed file operation. It has no sentinel of its own;
// Is reaches the os error it wraps.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports input that could not be decoded: markup, config files
// and code-point lists.
type ParseError struct {
	Format  string
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

// Unwrap reports ErrInvalidInput along with the cause from the decoder.
func (e *ParseError) Unwrap() []error { return chain(ErrInvalidInput, e.Err) }

// UnsupportedError reports a report format, session operation or node kind
// glyphmark does not handle.
type UnsupportedError struct {
	Feature string
	Reason  string
	Err     error
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() []error { return chain(ErrUnsupported, e.Err) }

// PreservationError reports that a document's text differs after annotation.
// Offset is the byte offset of the first difference in the original text.
type PreservationError struct {
	Source string
	Offset int
	Diff   string
}

func (e *PreservationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("text content of %s changed at byte %d: %s", e.Source, e.Offset, e.Diff)
	}
	return fmt.Sprintf("text content changed at byte %d: %s", e.Offset, e.Diff)
}

func (e *PreservationError) Unwrap() error { return ErrNotPreserved }

// NewNotFound creates a NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation creates a ValidationError.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewIO creates an IOError.
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewParse creates a ParseError without a cause.
func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

// NewUnsupported creates an UnsupportedError.
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
