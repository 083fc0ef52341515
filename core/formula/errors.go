// Package formula - Parse and evaluation errors
package formula

import (
	"fmt"
)

// ParseError reports malformed formula text
type ParseError struct {
	// Token is the offending token text ("" at end of input)
	Token string

	// Pos is the byte offset of the token
	Pos int

	// Msg describes the problem
	Msg string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at position %d (end of input): %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("parse error at position %d near %q: %s", e.Pos, e.Token, e.Msg)
}

// EvalErrorKind classifies evaluation failures
type EvalErrorKind string

const (
	ErrUnknownIdentifier EvalErrorKind = "unknown_identifier"
	ErrUnknownFunction   EvalErrorKind = "unknown_function"
	ErrTypeMismatch      EvalErrorKind = "type_mismatch"
	ErrDivisionByZero    EvalErrorKind = "division_by_zero"
	ErrArity             EvalErrorKind = "arity"
	ErrInvalidValue      EvalErrorKind = "invalid_value"
)

// EvalError reports a failure while interpreting a formula
type EvalError struct {
	Kind EvalErrorKind

	// Identifier is set for unknown identifiers and invalid bindings
	Identifier string

	Msg string
}

// Error implements the error interface
func (e *EvalError) Error() string {
	return "evaluation error: " + e.Msg
}

func parseErr(tok token, format string, args ...interface{}) *ParseError {
	return &ParseError{Token: tok.text, Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func evalErr(kind EvalErrorKind, format string, args ...interface{}) *EvalError {
	return &EvalError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func unknownIdentifier(name string) *EvalError {
	return &EvalError{
		Kind:       ErrUnknownIdentifier,
		Identifier: name,
		Msg:        fmt.Sprintf("unknown identifier %q", name),
	}
}
