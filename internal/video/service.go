package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/storage"
)

// Service accepts uploads and serves playback URLs. Processing itself runs
// in the Pipeline.
type Service struct {
	repo       Repository
	store      storage.MediaStore
	stagingDir string
	maxBytes   int64
}

// NewService creates a video service. maxUploadMB caps accepted uploads.
func NewService(repo Repository, store storage.MediaStore, stagingDir string, maxUploadMB int) *Service {
	if maxUploadMB <= 0 {
		maxUploadMB = 512
	}
	return &Service{
		repo:       repo,
		store:      store,
		stagingDir: stagingDir,
		maxBytes:   int64(maxUploadMB) << 20,
	}
}

// MaxBytes returns the upload size cap.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// UploadInput holds the metadata accompanying an upload.
type UploadInput struct {
	Title        string
	OriginalName string
	WebsiteID    *string
}

// Upload streams the body into staging and enqueues a pending row. The
// worker picks it up from there.
func (s *Service) Upload(ctx context.Context, orgID, userID string, in UploadInput, body io.Reader) (*domain.Video, error) {
	if in.Title == "" {
		return nil, errors.New("title is required")
	}

	if err := os.MkdirAll(s.stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}

	id := uuid.New().String()
	stagingPath := filepath.Join(s.stagingDir, id+filepath.Ext(in.OriginalName))

	f, err := os.Create(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}

	// Read one byte past the cap so an at-limit file still passes.
	written, err := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(stagingPath)
		return nil, fmt.Errorf("writing staging file: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(stagingPath)
		return nil, ErrTooLarge
	}
	if written == 0 {
		os.Remove(stagingPath)
		return nil, errors.New("empty upload")
	}

	v := &domain.Video{
		ID:             id,
		OrganizationID: orgID,
		WebsiteID:      in.WebsiteID,
		UploadedBy:     userID,
		Title:          in.Title,
		OriginalName:   in.OriginalName,
		StagingPath:    stagingPath,
		SizeBytes:      written,
		Status:         domain.VideoPending,
	}
	if _, err := s.repo.Create(ctx, v); err != nil {
		os.Remove(stagingPath)
		return nil, err
	}

	log.Info().Str("video_id", v.ID).Int64("bytes", written).Msg("video queued for processing")
	return v, nil
}

// Get returns one video.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Video, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns videos matching the filter.
func (s *Service) List(ctx context.Context, orgID string, f ListFilter) ([]domain.Video, int, error) {
	return s.repo.List(ctx, orgID, f)
}

// PlaybackURLs holds presigned URLs for a processed video.
type PlaybackURLs struct {
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Playback returns presigned URLs for a ready video.
func (s *Service) Playback(ctx context.Context, orgID, id string) (*PlaybackURLs, error) {
	v, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if v.Status != domain.VideoReady {
		return nil, ErrNotReady
	}

	videoURL, err := s.store.PresignGet(ctx, v.S3Key)
	if err != nil {
		return nil, err
	}
	urls := &PlaybackURLs{VideoURL: videoURL}
	if v.ThumbnailKey != "" {
		if thumbURL, err := s.store.PresignGet(ctx, v.ThumbnailKey); err == nil {
			urls.ThumbnailURL = thumbURL
		}
	}
	return urls, nil
}

// Delete removes the row and any stored artifacts.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	v, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}

	if v.StagingPath != "" {
		os.Remove(v.StagingPath)
	}
	if v.S3Key != "" {
		if err := s.store.Delete(ctx, v.S3Key); err != nil {
			log.Warn().Err(err).Str("key", v.S3Key).Msg("failed to delete video object")
		}
	}
	if v.ThumbnailKey != "" {
		if err := s.store.Delete(ctx, v.ThumbnailKey); err != nil {
			log.Warn().Err(err).Str("key", v.ThumbnailKey).Msg("failed to delete thumbnail object")
		}
	}
	return nil
}
