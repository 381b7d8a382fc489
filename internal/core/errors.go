package core

import "errors"

// Error kinds surfaced by ledger operations. Callers match them with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("transaction not found")
	ErrEmptyRange      = errors.New("no transactions in range")
	ErrMalformedImport = errors.New("malformed import payload")
)

// ValidationError describes a rejected field. It unwraps to ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

var (
	ErrInvalidAmount   = &ValidationError{Field: "amount", Msg: "must be greater than zero"}
	ErrEmptyCategory   = &ValidationError{Field: "category", Msg: "cannot be empty"}
	ErrInvalidType     = &ValidationError{Field: "type", Msg: "must be income or expense"}
	ErrInvalidDate     = &ValidationError{Field: "date", Msg: "cannot be zero"}
	ErrInvalidID       = &ValidationError{Field: "id", Msg: "must be a positive integer"}
	ErrUnknownCategory = &ValidationError{Field: "category", Msg: "unknown category"}
)
