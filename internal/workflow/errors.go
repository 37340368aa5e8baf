package workflow

import "errors"

var (
	// ErrNotFound is returned when a referenced mismatch or vendor does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor is not authorized for the target record
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when a workflow precondition is violated:
	// the record is not Pending, or a finalized record is being mutated
	ErrInvalidState = errors.New("invalid workflow state")
)
