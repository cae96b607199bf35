// Package common holds the error sentinels, retry loop and logger setup
// shared by every estimatch package.
package common

import "errors"

// Sentinels wrapped with %w across packages.
var (
	ErrNotFound = errors.New("not found")

	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateLineItem  = errors.New("duplicate line item id")
	ErrCollaboratorFailed = errors.New("matching collaborator failed")
	ErrCircuitOpen        = errors.New("matching collaborator unavailable")

	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError carries a message meant for the terminal alongside the cause.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return e.UserMessage + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

// NewUserError wraps err with a message for the terminal.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}
