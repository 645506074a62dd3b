package store

import "errors"

// Sentinel error kinds for conditions the API layer maps to responses.
// Wrap them with fmt.Errorf("...: %w", Err...) so callers can match with
// errors.Is while still getting a human-readable message.
var (
	// ErrNotFound means a referenced tool, loan, or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a unique field (tool code, username, email) is
	// already taken.
	ErrConflict = errors.New("already exists")

	// ErrInvalidState means the operation is not valid for the entity's
	// current state, e.g. returning an already-returned loan or deleting
	// a tool with active loans.
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientStock means a loan requested more than the tool's
	// available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)
