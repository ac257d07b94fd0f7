// Package errors provides the structured error type (PlanError) shared by every
// compilation stage. Errors are classified by category so the CLI can map them to
// exit codes without string matching.
package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of a compilation error.
type ErrorCategory string

const (
	// Declaration errors
	CategoryConfig        ErrorCategory = "config"
	CategoryUnknownTarget ErrorCategory = "unknown_target"
	CategoryTrust         ErrorCategory = "trust"

	// Package set composition errors
	CategoryOverlay           ErrorCategory = "overlay"
	CategoryUnresolvedPackage ErrorCategory = "unresolved_package"

	// Boundary errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryHandoff    ErrorCategory = "handoff"
	CategoryStore      ErrorCategory = "store"

	CategoryCanceled ErrorCategory = "canceled"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops compilation
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// ContextFields carries structured context for PlanError.
type ContextFields map[string]any

// PlanError is a structured error with category, severity and context.
type PlanError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface. Context fields are rendered in key order
// so messages are stable.
func (e *PlanError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): %s", e.Category, e.Severity, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap implements error unwrapping.
func (e *PlanError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *PlanError) WithContext(key string, value any) *PlanError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// Field returns a string context value, or "" when absent.
func (e *PlanError) Field(key string) string {
	if v, ok := e.Context[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// New creates a new PlanError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *PlanError {
	return &PlanError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new PlanError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PlanError {
	return &PlanError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the outermost PlanError in err's chain.
func As(err error) (*PlanError, bool) {
	var pe *PlanError
	if stdErrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsCategory checks if an error (or any error it wraps) belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var pe *PlanError
	for err != nil {
		if !stdErrors.As(err, &pe) {
			return false
		}
		if pe.Category == category {
			return true
		}
		err = pe.Cause
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if
// err carries no PlanError.
func GetCategory(err error) ErrorCategory {
	if pe, ok := As(err); ok {
		return pe.Category
	}
	return CategoryInternal
}
