package lead

import "errors"

// Sentinel errors for the lead service layer.
var (
	ErrNotFound          = errors.New("lead not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrWebsiteRequired   = errors.New("lead has no website")
)
