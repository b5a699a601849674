package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/video"
)

// VideoRepo implements video.Repository against PostgreSQL.
type VideoRepo struct{ db *sql.DB }

// NewVideoRepo creates a Postgres-backed video repository.
func NewVideoRepo(db *sql.DB) *VideoRepo { return &VideoRepo{db: db} }

const videoColumns = `id, organization_id, website_id, uploaded_by, title,
	original_name, COALESCE(staging_path,''), COALESCE(s3_key,''),
	COALESCE(thumbnail_key,''), size_bytes, duration_secs, width, height,
	status, attempts, COALESCE(last_error,''), processed_at, created_at, updated_at`

func scanVideo(row interface{ Scan(...interface{}) error }) (*domain.Video, error) {
	v := &domain.Video{}
	var websiteID sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(
		&v.ID, &v.OrganizationID, &websiteID, &v.UploadedBy, &v.Title,
		&v.OriginalName, &v.StagingPath, &v.S3Key,
		&v.ThumbnailKey, &v.SizeBytes, &v.DurationSecs, &v.Width, &v.Height,
		&v.Status, &v.Attempts, &v.LastError, &processedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.WebsiteID = strPtr(websiteID)
	v.ProcessedAt = timePtr(processedAt)
	return v, nil
}

func (r *VideoRepo) Get(ctx context.Context, orgID, id string) (*domain.Video, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE id = $1 AND organization_id = $2",
		id, orgID)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, video.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}

func (r *VideoRepo) List(ctx context.Context, orgID string, f video.ListFilter) ([]domain.Video, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE organization_id = $1"
	args := []interface{}{orgID}
	idx := 2

	if f.WebsiteID != "" {
		where += fmt.Sprintf(" AND website_id = $%d", idx)
		args = append(args, f.WebsiteID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	q := "SELECT " + videoColumns + " FROM videos" + where +
		" ORDER BY created_at DESC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var out []domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, *v)
	}
	return out, total, rows.Err()
}

func (r *VideoRepo) Create(ctx context.Context, v *domain.Video) (string, error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos
			(id, organization_id, website_id, uploaded_by, title, original_name,
			 staging_path, size_bytes, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, NOW(), NOW())
	`, v.ID, v.OrganizationID, nullStr(v.WebsiteID), v.UploadedBy, v.Title,
		v.OriginalName, v.StagingPath, v.SizeBytes, v.Status)
	if err != nil {
		return "", fmt.Errorf("create video: %w", err)
	}
	return v.ID, nil
}

func (r *VideoRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM videos WHERE id = $1 AND organization_id = $2", id, orgID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return video.ErrNotFound
	}
	return nil
}

// ClaimNextPending takes one pending row for this worker. SKIP LOCKED lets
// concurrent workers claim different rows without blocking each other, and
// the attempt bump happens in the same statement as the status flip. Rows
// stuck in processing for over 30 minutes are reclaimed too, so a crashed
// worker cannot strand a video outside the queue.
func (r *VideoRepo) ClaimNextPending(ctx context.Context, maxAttempts int) (*domain.Video, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE videos
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM videos
			WHERE (status = 'pending'
			       OR (status = 'processing' AND updated_at < NOW() - INTERVAL '30 minutes'))
			  AND attempts < $1
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+videoColumns, maxAttempts)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, video.ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending video: %w", err)
	}
	return v, nil
}

func (r *VideoRepo) MarkReady(ctx context.Context, id string, meta video.ProcessedMeta) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE videos
		SET status = 'ready', s3_key = $1, thumbnail_key = $2, size_bytes = $3,
		    duration_secs = $4, width = $5, height = $6, last_error = '',
		    staging_path = '', processed_at = NOW(), updated_at = NOW()
		WHERE id = $7
	`, meta.S3Key, meta.ThumbnailKey, meta.SizeBytes,
		meta.DurationSecs, meta.Width, meta.Height, id)
	if err != nil {
		return fmt.Errorf("mark video ready: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return video.ErrNotFound
	}
	return nil
}

func (r *VideoRepo) MarkFailed(ctx context.Context, id, lastError string, final bool) error {
	status := domain.VideoPending
	if final {
		status = domain.VideoFailed
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE videos
		SET status = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3
	`, status, lastError, id)
	if err != nil {
		return fmt.Errorf("mark video failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return video.ErrNotFound
	}
	return nil
}
