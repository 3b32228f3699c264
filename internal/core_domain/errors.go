package core_domain

import "errors"

// Shared error taxonomy. Handlers map these to HTTP statuses; services use errors.Is
// to decide between rejecting input, reporting not-found, and recovering locally.
var (
	// ErrValidation marks bad input rejected before any state change.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown campaign, borrower, recipient link or session token.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation on an entity in a terminal or incompatible state,
	// e.g. closing a session twice or moving a recipient status backwards.
	ErrInvalidState = errors.New("invalid state")

	// ErrTemplate marks a message template referencing an undeclared placeholder.
	ErrTemplate = errors.New("template error")
)
