// Package pipeline orchestrates the FirmForge compile run.
// It drives the phase sequence: Scan -> Load -> Aggregate -> per-domain
// [Validate -> Allocate -> Emit], with domains failing independently.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/firmforge/firmforge/pkg/model"
)

// ErrorClass represents the classification of a pipeline error. Every
// failure is deterministic given the same inputs, so there is no retry
// logic: the class decides how far the failure propagates.
type ErrorClass string

const (
	// ErrorClassSkippable indicates a single input that contributes
	// nothing. Examples: unparseable file, unreadable directory.
	// The run continues without it.
	ErrorClassSkippable ErrorClass = "skippable"

	// ErrorClassDomainFatal indicates one domain cannot produce output.
	// Examples: validation failure, topic band exhaustion. Other domains
	// are unaffected.
	ErrorClassDomainFatal ErrorClass = "domain-fatal"

	// ErrorClassRunFatal indicates the whole run must abort.
	// Examples: no input discovered for any domain, a missing template
	// override file, an uncreatable output directory.
	ErrorClassRunFatal ErrorClass = "run-fatal"
)

// PipelineError represents a classified error with pipeline context.
// nolint:revive // PipelineError is intentionally named to distinguish from standard errors
type PipelineError struct {
	// Class decides how far the failure propagates.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Domain is the config domain the error belongs to, if applicable.
	Domain model.Domain `json:"domain,omitempty"`

	// Path is the file or directory that caused the error, if applicable.
	Path string `json:"path,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Domain != "" && e.Path != "" {
		return fmt.Sprintf("[%s] %s (domain=%s, path=%s): %s",
			e.Class, e.Message, e.Domain, e.Path, e.unwrapMessage())
	}
	if e.Domain != "" {
		return fmt.Sprintf("[%s] %s (domain=%s): %s",
			e.Class, e.Message, e.Domain, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// unwrapMessage returns the error message from the underlying error chain.
func (e *PipelineError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewSkippableError creates a new skippable error.
func NewSkippableError(message string, err error) *PipelineError {
	return &PipelineError{
		Class:   ErrorClassSkippable,
		Message: message,
		Err:     err,
	}
}

// NewDomainFatalError creates a new domain-fatal error.
func NewDomainFatalError(message string, err error) *PipelineError {
	return &PipelineError{
		Class:   ErrorClassDomainFatal,
		Message: message,
		Err:     err,
	}
}

// NewRunFatalError creates a new run-fatal error.
func NewRunFatalError(message string, err error) *PipelineError {
	return &PipelineError{
		Class:   ErrorClassRunFatal,
		Message: message,
		Err:     err,
	}
}

// WithDomain adds domain context to an error.
func (e *PipelineError) WithDomain(domain model.Domain) *PipelineError {
	e.Domain = domain
	return e
}

// WithPath adds file or directory context to an error.
func (e *PipelineError) WithPath(path string) *PipelineError {
	e.Path = path
	return e
}

// WithCode adds an error code to an error.
func (e *PipelineError) WithCode(code string) *PipelineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *PipelineError) WithDetail(key string, value interface{}) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsSkippable returns true if the error is classified as skippable.
func IsSkippable(err error) bool {
	var e *PipelineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassSkippable
	}
	return false
}

// IsDomainFatal returns true if the error is classified as domain-fatal.
func IsDomainFatal(err error) bool {
	var e *PipelineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassDomainFatal
	}
	return false
}

// IsRunFatal returns true if the error is classified as run-fatal.
// Unclassified errors are treated as run-fatal as well: anything the
// pipeline did not deliberately downgrade aborts the run.
func IsRunFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *PipelineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassRunFatal
	}
	return true
}

// Common error codes.
const (
	ErrCodeNoInput         = "NO_INPUT"
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeBandExhausted   = "BAND_EXHAUSTED"
	ErrCodeTemplateMissing = "TEMPLATE_MISSING"
	ErrCodeWorkDir         = "WORKDIR_UNWRITABLE"
	ErrCodeOutDir          = "OUTDIR_UNWRITABLE"
	ErrCodeMirrorWrite     = "MIRROR_WRITE_FAILED"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)
