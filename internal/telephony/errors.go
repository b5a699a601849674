package telephony

import "errors"

var (
	// ErrNotFound is returned when the referenced number does not exist in
	// the caller's organization.
	ErrNotFound = errors.New("phone number not found")

	// ErrAlreadyReleased is returned when releasing a number twice.
	ErrAlreadyReleased = errors.New("phone number already released")

	// ErrNoNumbersAvailable means the provider had no numbers matching the
	// search criteria.
	ErrNoNumbersAvailable = errors.New("no numbers available for criteria")

	// ErrBadSignature is returned when a webhook payload fails signature
	// verification.
	ErrBadSignature = errors.New("invalid webhook signature")
)
