package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/keywords"
	"github.com/lumenlocal/rankdesk/internal/pkg/distlock"
	"github.com/lumenlocal/rankdesk/internal/repository/postgres"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
	"github.com/lumenlocal/rankdesk/internal/storage"
	"github.com/lumenlocal/rankdesk/internal/video"
)

// The worker runs the three background loops: the video transcoding
// pipeline, the daily keyword rank tracking cycle, and the API key
// usage reset at UTC midnight. It shares no state with the API server
// beyond Postgres and Redis, so any number of replicas can run; the
// distributed locks keep the singleton jobs singleton.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("load config")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, using PG advisory locks")
			rdb = nil
		}
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("init media storage")
	}

	videoRepo := postgres.NewVideoRepo(db)
	keywordRepo := postgres.NewKeywordRepo(db)
	apiKeyRepo := postgres.NewAPIKeyRepo(db)

	resetLock := distlock.NewLock(rdb, db, "seoapi:daily-reset", 10*time.Minute)
	keySvc := seoapi.NewKeyService(apiKeyRepo, resetLock, cfg.SEOAPI.UnitsPerLookup)

	cycleLock := distlock.NewLock(rdb, db, "keywords:cycle", 2*time.Hour)
	keywordSvc := keywords.NewService(keywordRepo, seoapi.NewClient(cfg.SEOAPI), keySvc, cycleLock, cfg.Tracking)

	pipeline := video.NewPipeline(videoRepo, store, video.NewFFmpeg(cfg.Video.FFmpegPath, cfg.Video.FFprobePath), cfg.Video)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		pipeline.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runTrackingCycle(ctx, keywordSvc, cfg.Tracking.Interval())
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runDailyReset(ctx, keySvc)
	}()

	log.Info().
		Int("video_workers", cfg.Video.Workers).
		Dur("tracking_interval", cfg.Tracking.Interval()).
		Msg("worker started")

	<-ctx.Done()
	log.Info().Msg("worker shutting down")
	wg.Wait()
}

// runTrackingCycle runs one cycle immediately, then on every tick. The
// distributed lock inside RunCycle makes overlapping replicas a no-op.
func runTrackingCycle(ctx context.Context, svc *keywords.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := svc.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("tracking cycle failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runDailyReset fires shortly after each UTC midnight and zeroes the
// per-key usage counters.
func runDailyReset(ctx context.Context, svc *seoapi.KeyService) {
	for {
		now := time.Now().UTC()
		next := now.Truncate(24 * time.Hour).Add(24*time.Hour + time.Minute)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		if err := svc.ResetDaily(ctx); err != nil {
			log.Error().Err(err).Msg("daily key reset failed")
		}
	}
}
