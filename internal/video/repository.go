package video

import (
	"context"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// ListFilter controls filtering for video lists.
type ListFilter struct {
	WebsiteID string
	Status    domain.VideoStatus
	Limit     int
	Offset    int
}

// ProcessedMeta holds what the pipeline learned about a finished video.
type ProcessedMeta struct {
	S3Key        string
	ThumbnailKey string
	SizeBytes    int64
	DurationSecs float64
	Width        int
	Height       int
}

// Repository provides data access for the video queue.
type Repository interface {
	Get(ctx context.Context, orgID, id string) (*domain.Video, error)
	List(ctx context.Context, orgID string, f ListFilter) ([]domain.Video, int, error)
	Create(ctx context.Context, v *domain.Video) (string, error)
	Delete(ctx context.Context, orgID, id string) error

	// ClaimNextPending atomically takes one pending video with attempts
	// below the cap, flips it to processing, and increments its attempt
	// counter. Stale processing rows left by a crashed worker are fair
	// game too. Returns ErrNoPending when the queue is empty.
	ClaimNextPending(ctx context.Context, maxAttempts int) (*domain.Video, error)

	// MarkReady records the processed output and flips the row to ready.
	MarkReady(ctx context.Context, id string, meta ProcessedMeta) error

	// MarkFailed records the error. When final is false the row returns
	// to pending for another attempt; otherwise it lands in failed.
	MarkFailed(ctx context.Context, id, lastError string, final bool) error
}
