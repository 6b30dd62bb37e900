// Package errors provides centralized error handling for the analysis pipeline
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is an interface for errors that can specify their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation        ErrorCategory = "validation"
	CategoryNoData            ErrorCategory = "no-data"
	CategoryComputeLimit      ErrorCategory = "compute-limit"
	CategoryRemoteUnavailable ErrorCategory = "remote-unavailable"
	CategoryNetwork           ErrorCategory = "network"
	CategoryConfiguration     ErrorCategory = "configuration"
	CategoryProcessing        ErrorCategory = "processing"
	CategoryGeometry          ErrorCategory = "geometry"
	CategoryGeneric           ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err         error          // Original error
	Component   string         // Component where error occurred
	Category    ErrorCategory  // Error category for better grouping
	Context     map[string]any // Additional context data
	Suggestions []string       // Actionable remediation hints, user-facing
	Timestamp   time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking. Two enhanced errors match when their
// categories match; otherwise matching falls through to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// ErrorCategory implements CategorizedError
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// GetSuggestions returns the remediation suggestions attached to the error
func (ee *EnhancedError) GetSuggestions() []string {
	return ee.Suggestions
}

// GetMessage returns the error message
func (ee *EnhancedError) GetMessage() string {
	if ee.Err != nil {
		return ee.Err.Error()
	}
	return ""
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err         error
	component   string
	category    ErrorCategory
	context     map[string]any
	suggestions []string
}

// New creates a new error builder wrapping err
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err: err,
		// context is lazily initialized when needed
	}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Suggestion appends an actionable remediation hint to the error
func (eb *ErrorBuilder) Suggestion(hints ...string) *ErrorBuilder {
	eb.suggestions = append(eb.suggestions, hints...)
	return eb
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:         eb.err,
		Component:   eb.component,
		Category:    eb.category,
		Context:     eb.context,
		Suggestions: eb.suggestions,
		Timestamp:   time.Now(),
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}
	return ee
}

// CategoryOf returns the category of err, unwrapping as needed.
// Errors without a category report CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}
	return CategoryGeneric
}

// SuggestionsOf returns remediation suggestions carried by err, if any.
func SuggestionsOf(err error) []string {
	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) {
		return enhErr.Suggestions
	}
	return nil
}

// Standard library passthroughs so callers only import this package.

// NewStd creates a plain error without enhancement
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
