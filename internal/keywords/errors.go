package keywords

import "errors"

var (
	// ErrNotFound is returned when the referenced keyword does not exist
	// in the caller's organization.
	ErrNotFound = errors.New("keyword not found")

	// ErrDuplicate is returned when the phrase is already tracked for the
	// website with the same location and language.
	ErrDuplicate = errors.New("keyword already tracked for website")
)
