package seoapi

import "errors"

var (
	// ErrNoKeysAvailable means every enabled key has exhausted its daily
	// unit budget. Callers should back off until the next daily reset.
	ErrNoKeysAvailable = errors.New("no api keys with remaining budget")

	// ErrKeyNotFound is returned when the referenced key does not exist.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrTaskNotReady means the provider has accepted the task but has not
	// finished crawling the SERP yet. Poll again later.
	ErrTaskNotReady = errors.New("task results not ready")
)
