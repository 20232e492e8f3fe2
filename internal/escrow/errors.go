package escrow

import "errors"

var (
	// ErrInvalidAmount is returned when a deposit amount is not positive.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrNotRegistered is returned when the acting user has no account.
	ErrNotRegistered = errors.New("user is not registered")

	// ErrAlreadyRegistered signals that Register was a no-op because the
	// account already exists.
	ErrAlreadyRegistered = errors.New("user is already registered")

	// ErrClaimNotFound is returned for an unknown claim ID, or a claim that
	// does not belong to the acting user.
	ErrClaimNotFound = errors.New("deposit claim not found")

	// ErrClaimNotPending is returned when a claim has already been approved
	// or rejected.
	ErrClaimNotPending = errors.New("deposit claim already processed")

	// ErrUnauthorized is returned when a non-operator attempts an
	// operator-only transition.
	ErrUnauthorized = errors.New("not authorized")
)
