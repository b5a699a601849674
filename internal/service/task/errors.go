package task

import "errors"

// Sentinel errors for the task service layer.
var (
	ErrNotFound      = errors.New("task not found")
	ErrAlreadyClosed = errors.New("task is already done or cancelled")
)
