package video

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/metrics"
	"github.com/lumenlocal/rankdesk/internal/storage"
)

// Pipeline runs the background workers that drain the pending video queue.
type Pipeline struct {
	repo        Repository
	store       storage.MediaStore
	transcoder  Transcoder
	workers     int
	pollEvery   time.Duration
	maxAttempts int
}

// NewPipeline creates the processing pipeline.
func NewPipeline(repo Repository, store storage.MediaStore, transcoder Transcoder, cfg config.VideoConfig) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Pipeline{
		repo:        repo,
		store:       store,
		transcoder:  transcoder,
		workers:     workers,
		pollEvery:   cfg.PollInterval(),
		maxAttempts: maxAttempts,
	}
}

// Run blocks until ctx is cancelled, processing queued videos with the
// configured worker count.
func (p *Pipeline) Run(ctx context.Context) {
	log.Info().Int("workers", p.workers).Msg("video pipeline started")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.workLoop(ctx, worker)
		}(i)
	}
	wg.Wait()
	log.Info().Msg("video pipeline stopped")
}

func (p *Pipeline) workLoop(ctx context.Context, worker int) {
	for {
		v, err := p.repo.ClaimNextPending(ctx, p.maxAttempts)
		if err != nil {
			if !errors.Is(err, ErrNoPending) {
				log.Error().Err(err).Int("worker", worker).Msg("claiming pending video")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollEvery):
			}
			continue
		}

		if err := p.ProcessOne(ctx, v); err != nil {
			final := v.Attempts >= p.maxAttempts
			log.Error().Err(err).
				Str("video_id", v.ID).
				Int("attempt", v.Attempts).
				Bool("final", final).
				Msg("video processing failed")
			outcome := "retried"
			if final {
				outcome = "failed"
			}
			metrics.VideosProcessed.WithLabelValues(outcome).Inc()
			// Mark outside the worker's context: a shutdown that killed
			// the transcode must still put the row back in the queue.
			markCtx := context.WithoutCancel(ctx)
			if markErr := p.repo.MarkFailed(markCtx, v.ID, err.Error(), final); markErr != nil {
				log.Error().Err(markErr).Str("video_id", v.ID).Msg("marking video failed")
			}
		} else {
			metrics.VideosProcessed.WithLabelValues("ready").Inc()
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// ProcessOne runs the full transcode for a claimed video.
func (p *Pipeline) ProcessOne(ctx context.Context, v *domain.Video) error {
	if _, err := os.Stat(v.StagingPath); err != nil {
		return fmt.Errorf("staging file missing: %w", err)
	}

	info, err := p.transcoder.Probe(ctx, v.StagingPath)
	if err != nil {
		return fmt.Errorf("probing source: %w", err)
	}

	outPath := v.StagingPath + ".out.mp4"
	thumbPath := v.StagingPath + ".thumb.jpg"
	defer os.Remove(outPath)
	defer os.Remove(thumbPath)

	if err := p.transcoder.Transcode(ctx, v.StagingPath, outPath); err != nil {
		return err
	}

	// Grab the frame at 10% in; intros tend to be black frames.
	thumbAt := info.DurationSecs * 0.1
	thumbOK := true
	if err := p.transcoder.Thumbnail(ctx, v.StagingPath, thumbPath, thumbAt); err != nil {
		// A missing thumbnail should not fail the whole video.
		log.Warn().Err(err).Str("video_id", v.ID).Msg("thumbnail generation failed")
		thumbOK = false
	}

	meta := ProcessedMeta{
		S3Key:        storage.VideoKey(v.OrganizationID, v.ID),
		DurationSecs: info.DurationSecs,
		Width:        info.Width,
		Height:       info.Height,
	}

	if err := p.uploadFile(ctx, outPath, meta.S3Key); err != nil {
		return fmt.Errorf("uploading video: %w", err)
	}
	if fi, err := os.Stat(outPath); err == nil {
		meta.SizeBytes = fi.Size()
	}

	if thumbOK {
		meta.ThumbnailKey = storage.ThumbnailKey(v.OrganizationID, v.ID)
		if err := p.uploadFile(ctx, thumbPath, meta.ThumbnailKey); err != nil {
			log.Warn().Err(err).Str("video_id", v.ID).Msg("thumbnail upload failed")
			meta.ThumbnailKey = ""
		}
	}

	if err := p.repo.MarkReady(ctx, v.ID, meta); err != nil {
		return fmt.Errorf("marking ready: %w", err)
	}

	// Staging input is only needed for retries.
	os.Remove(v.StagingPath)

	log.Info().
		Str("video_id", v.ID).
		Float64("duration_secs", meta.DurationSecs).
		Int64("bytes", meta.SizeBytes).
		Msg("video processed")
	return nil
}

func (p *Pipeline) uploadFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return p.store.Put(ctx, key, contentType, f)
}
