// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeParse indicates malformed formula text
	TypeParse Type = "PARSE_ERROR"

	// TypeEvaluation indicates a formula failed while being interpreted
	TypeEvaluation Type = "EVALUATION_ERROR"

	// TypeValidation indicates an invalid pricing catalog
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeInput indicates bad caller input such as a negative unit count
	TypeInput Type = "INPUT_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeNotFound indicates an unknown plan, add-on or resource
	TypeNotFound Type = "NOT_FOUND"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType checks if any error in the chain is of a specific type
func IsType(err error, t Type) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Cause
	}
	return false
}

// Classifier maps an error outside this package to a Type
type Classifier func(err error) (Type, bool)

var classifiers []Classifier

// RegisterClassifier teaches Classify about error types from other packages.
// It is meant to be called from init functions.
func RegisterClassifier(c Classifier) {
	classifiers = append(classifiers, c)
}

// Classify returns the type of the outermost *Error in the chain,
// falling back to registered classifiers and then TypeInternal.
func Classify(err error) Type {
	if err == nil {
		return ""
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	for _, c := range classifiers {
		if t, ok := c(err); ok {
			return t
		}
	}
	return TypeInternal
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// Inputf creates a formatted input error
func Inputf(format string, args ...interface{}) *Error {
	return Newf(TypeInput, format, args...)
}

// Parse wraps a formula parse failure
func Parse(message string, cause error) *Error {
	return Wrap(TypeParse, message, cause)
}

// Evaluation wraps a formula evaluation failure
func Evaluation(message string, cause error) *Error {
	return Wrap(TypeEvaluation, message, cause)
}

// Validation wraps a catalog validation failure
func Validation(message string, cause error) *Error {
	return Wrap(TypeValidation, message, cause)
}

// Config wraps a configuration failure
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
