package video

import "errors"

var (
	// ErrNotFound is returned when the referenced video does not exist in
	// the caller's organization.
	ErrNotFound = errors.New("video not found")

	// ErrNoPending is returned by the queue claim when nothing is waiting.
	ErrNoPending = errors.New("no pending videos")

	// ErrNotReady is returned when playback URLs are requested before the
	// pipeline has finished.
	ErrNotReady = errors.New("video not processed yet")

	// ErrTooLarge is returned when an upload exceeds the size cap.
	ErrTooLarge = errors.New("upload exceeds size limit")
)
