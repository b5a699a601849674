package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlocal/rankdesk/internal/video"
)

var videoRows = []string{
	"id", "organization_id", "website_id", "uploaded_by", "title",
	"original_name", "staging_path", "s3_key", "thumbnail_key",
	"size_bytes", "duration_secs", "width", "height",
	"status", "attempts", "last_error", "processed_at", "created_at", "updated_at",
}

func TestVideoClaimNextPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`status = 'processing' AND updated_at < NOW\(\)`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(videoRows).
			AddRow("vid-1", "org-1", nil, "user-1", "Demo walkthrough",
				"demo.mov", "/tmp/vid-1.mov", "", "",
				int64(1048576), 0.0, 0, 0,
				"processing", 1, "", nil, now, now))

	repo := NewVideoRepo(db)
	v, err := repo.ClaimNextPending(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "vid-1", v.ID)
	assert.Equal(t, 1, v.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoClaimNextPendingEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE videos").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(videoRows))

	repo := NewVideoRepo(db)
	_, err = repo.ClaimNextPending(context.Background(), 3)
	assert.ErrorIs(t, err, video.ErrNoPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoMarkReady(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	meta := video.ProcessedMeta{
		S3Key:        "videos/org-1/vid-1.mp4",
		ThumbnailKey: "videos/org-1/vid-1_thumb.jpg",
		SizeBytes:    2048,
		DurationSecs: 33.4,
		Width:        1920,
		Height:       1080,
	}
	mock.ExpectExec("UPDATE videos").
		WithArgs(meta.S3Key, meta.ThumbnailKey, meta.SizeBytes,
			meta.DurationSecs, meta.Width, meta.Height, "vid-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewVideoRepo(db)
	require.NoError(t, repo.MarkReady(context.Background(), "vid-1", meta))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoMarkReadyMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE videos").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewVideoRepo(db)
	err = repo.MarkReady(context.Background(), "gone", video.ProcessedMeta{})
	assert.ErrorIs(t, err, video.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
