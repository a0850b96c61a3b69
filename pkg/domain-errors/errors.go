// Package domainerrors defines the typed error taxonomy shared by services and
// transports. Services return these; the HTTP layer maps Code to a status.
//
// Stores do not use this package directly. They return pkg/platform/sentinel
// errors, which services translate with Wrap or New.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error identifier exposed to API clients.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Lifecycle codes. Validation failures are recoverable by fixing the input;
// state conflicts carry the current authoritative state.
const (
	CodeReasonTooShort         Code = "reason_too_short"
	CodeAcknowledgmentRequired Code = "acknowledgment_required"
	CodeJustificationRequired  Code = "justification_required"

	CodeInvalidTransition    Code = "invalid_transition"
	CodeNotAppealable        Code = "not_appealable"
	CodeAppealAlreadyPending Code = "appeal_already_pending"
	CodeAppealPending        Code = "appeal_pending"
	CodeAlreadyReconsidered  Code = "already_reconsidered"
	CodeWindowExpired        Code = "window_expired"
	CodeWrongState           Code = "wrong_state"
)

// Category groups codes for transport mapping and logging.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryStateConflict Category = "state_conflict"
	CategoryConcurrency   Category = "concurrency"
	CategoryAuthorization Category = "authorization"
	CategoryNotFound      Category = "not_found"
	CategoryInternal      Category = "internal"
)

var codeCategories = map[Code]Category{
	CodeBadRequest:             CategoryValidation,
	CodeValidation:             CategoryValidation,
	CodeInvalidInput:           CategoryValidation,
	CodeReasonTooShort:         CategoryValidation,
	CodeAcknowledgmentRequired: CategoryValidation,
	CodeJustificationRequired:  CategoryValidation,
	CodeInvalidTransition:      CategoryStateConflict,
	CodeNotAppealable:          CategoryStateConflict,
	CodeAppealAlreadyPending:   CategoryStateConflict,
	CodeAppealPending:          CategoryStateConflict,
	CodeAlreadyReconsidered:    CategoryStateConflict,
	CodeWindowExpired:          CategoryStateConflict,
	CodeWrongState:             CategoryStateConflict,
	CodeInvariantViolation:     CategoryStateConflict,
	CodeConflict:               CategoryConcurrency,
	CodeUnauthorized:           CategoryAuthorization,
	CodeForbidden:              CategoryAuthorization,
	CodeNotFound:               CategoryNotFound,
}

// Category returns the category for the code. Unknown codes are internal.
func (c Code) Category() Category {
	if cat, ok := codeCategories[c]; ok {
		return cat
	}
	return CategoryInternal
}

// Error is a domain error with a stable code.
// State is set on state conflicts so callers can resynchronize.
type Error struct {
	Code    Code
	Message string
	State   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Conflict creates a state-conflict error that reports the current state.
func Conflict(code Code, msg string, currentState string) error {
	return &Error{Code: code, Message: msg, State: currentState}
}

// As returns the outermost domain error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in err carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias for HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of err, or CodeInternal for non-domain errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// StateOf returns the current state attached to a conflict error, if any.
func StateOf(err error) string {
	if de, ok := As(err); ok {
		return de.State
	}
	return ""
}
