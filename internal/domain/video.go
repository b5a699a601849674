package domain

import "time"

// VideoStatus enumerates the processing pipeline states of a recording.
type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoReady      VideoStatus = "ready"
	VideoFailed     VideoStatus = "failed"
)

// Video represents an uploaded recording (site walkthroughs, client reports)
// that moves through the staging -> transcode -> S3 pipeline.
type Video struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	WebsiteID      *string     `json:"website_id" db:"website_id"`
	UploadedBy     string      `json:"uploaded_by" db:"uploaded_by"`
	Title          string      `json:"title" db:"title"`
	OriginalName   string      `json:"original_name" db:"original_name"`
	StagingPath    string      `json:"-" db:"staging_path"`
	S3Key          string      `json:"s3_key" db:"s3_key"`
	ThumbnailKey   string      `json:"thumbnail_key" db:"thumbnail_key"`
	SizeBytes      int64       `json:"size_bytes" db:"size_bytes"`
	DurationSecs   float64     `json:"duration_secs" db:"duration_secs"`
	Width          int         `json:"width" db:"width"`
	Height         int         `json:"height" db:"height"`
	Status         VideoStatus `json:"status" db:"status"`
	Attempts       int         `json:"attempts" db:"attempts"`
	LastError      string      `json:"last_error,omitempty" db:"last_error"`

	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true once the video has finished the pipeline.
func (v *Video) IsTerminal() bool {
	return v.Status == VideoReady || v.Status == VideoFailed
}
