package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/api"
	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/cache"
	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/keywords"
	"github.com/lumenlocal/rankdesk/internal/pkg/distlock"
	"github.com/lumenlocal/rankdesk/internal/repository/postgres"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
	"github.com/lumenlocal/rankdesk/internal/service/lead"
	"github.com/lumenlocal/rankdesk/internal/service/task"
	"github.com/lumenlocal/rankdesk/internal/service/website"
	"github.com/lumenlocal/rankdesk/internal/storage"
	"github.com/lumenlocal/rankdesk/internal/telephony"
	"github.com/lumenlocal/rankdesk/internal/video"
)

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
	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("auth.jwt_secret is required (or JWT_SECRET env)")
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
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).
				Msg("redis unreachable, falling back to uncached responses and PG locks")
			rdb = nil
		}
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("init media storage")
	}

	// Repositories.
	userRepo := postgres.NewUserRepo(db)
	websiteRepo := postgres.NewWebsiteRepo(db)
	clientRepo := postgres.NewClientRepo(db)
	leadRepo := postgres.NewLeadRepo(db)
	taskRepo := postgres.NewTaskRepo(db)
	phoneRepo := postgres.NewPhoneRepo(db)
	videoRepo := postgres.NewVideoRepo(db)
	keywordRepo := postgres.NewKeywordRepo(db)
	apiKeyRepo := postgres.NewAPIKeyRepo(db)

	// Services.
	authSvc := auth.NewService(userRepo, cfg.Auth)
	websiteSvc := website.NewService(websiteRepo)
	leadSvc := lead.NewService(leadRepo)
	taskSvc := task.NewService(taskRepo)

	phoneSvc := telephony.NewService(
		phoneRepo,
		telephony.NewClient(cfg.Telephony),
		cfg.Telephony.WebhookSecret,
		os.Getenv("CALL_WEBHOOK_URL"),
	)
	videoSvc := video.NewService(videoRepo, store, cfg.Video.StagingDir, cfg.Video.MaxUploadMB)

	resetLock := distlock.NewLock(rdb, db, "seoapi:daily-reset", 10*time.Minute)
	keySvc := seoapi.NewKeyService(apiKeyRepo, resetLock, cfg.SEOAPI.UnitsPerLookup)

	cycleLock := distlock.NewLock(rdb, db, "keywords:cycle", 2*time.Hour)
	keywordSvc := keywords.NewService(keywordRepo, seoapi.NewClient(cfg.SEOAPI), keySvc, cycleLock, cfg.Tracking)

	var c *cache.Cache
	if rdb != nil {
		c = cache.New(rdb, 5*time.Minute)
	}

	handlers := api.NewHandlers(
		authSvc, websiteSvc, leadSvc, taskSvc, clientRepo,
		phoneSvc, videoSvc, keywordSvc, keySvc, c,
	)
	router := api.SetupRoutes(handlers, cfg.Server.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
