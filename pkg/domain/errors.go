package domain

import "errors"

// Error taxonomy shared by every core component. Callers classify failures
// with errors.Is; the HTTP layer maps each sentinel to a status code.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
