// Package errors provides a lightweight structured error type (CleanupError)
// for category-based classification and retry semantics in the cleanup engine.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a cleanup error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig ErrorCategory = "config"

	// Filesystem-level failures (locked files, permissions, missing entries)
	CategoryFileSystem ErrorCategory = "filesystem"

	// External deletion command failures
	CategoryCommand ErrorCategory = "command"

	// Runtime and infrastructure errors
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the invocation
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// CleanupError is a structured error with category, retryability, and context
type CleanupError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for CleanupError
type ContextFields map[string]any

// Error implements the error interface
func (e *CleanupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *CleanupError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *CleanupError) WithContext(key string, value any) *CleanupError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new CleanupError
func New(category ErrorCategory, severity ErrorSeverity, message string) *CleanupError {
	return &CleanupError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new CleanupError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *CleanupError {
	return &CleanupError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// WrapRetryable creates a new retryable CleanupError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *CleanupError {
	return &CleanupError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// ConfigError creates a fatal configuration error. Configuration errors abort
// the whole invocation before any deletion is attempted.
func ConfigError(message string) *CleanupError {
	return &CleanupError{
		Category:  CategoryConfig,
		Severity:  SeverityFatal,
		Message:   message,
		Retryable: false,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if ce, ok := err.(*CleanupError); ok {
		return ce.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if ce, ok := err.(*CleanupError); ok {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a CleanupError
func GetCategory(err error) ErrorCategory {
	if ce, ok := err.(*CleanupError); ok {
		return ce.Category
	}
	return CategoryInternal
}
