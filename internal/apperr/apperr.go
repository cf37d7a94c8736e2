// Package apperr provides coded domain errors whose keys double as
// localization message keys.
package apperr

import "errors"

// Code is a machine-readable error kind.
type Code string

const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeNotAuthorized Code = "NOT_AUTHORIZED"
	CodeInvalidState  Code = "INVALID_STATE"
	CodeValidation    Code = "VALIDATION"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"
)

// Error is the domain error type.
type Error struct {
	Code     Code              // error kind
	Key      string            // localization key, e.g. "taskNotFound"
	Metadata map[string]string // template params for Key
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Key + ": " + e.Cause.Error()
	}
	return e.Key
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, and by key when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Key == "" || t.Key == e.Key
}

// New creates an error of the given kind.
func New(code Code, key string) *Error {
	return &Error{Code: code, Key: key}
}

// Wrap creates an error of the given kind around cause.
func Wrap(code Code, key string, cause error) *Error {
	return &Error{Code: code, Key: key, Cause: cause}
}

// WithMetadata attaches template params and returns e.
func (e *Error) WithMetadata(metadata map[string]string) *Error {
	e.Metadata = metadata
	return e
}

func NotFound(key string) *Error      { return New(CodeNotFound, key) }
func NotAuthorized(key string) *Error { return New(CodeNotAuthorized, key) }
func InvalidState(key string) *Error  { return New(CodeInvalidState, key) }
func Validation(key string) *Error    { return New(CodeValidation, key) }

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
