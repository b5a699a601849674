package keywords

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/metrics"
	"github.com/lumenlocal/rankdesk/internal/pkg/distlock"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
)

// Defaults applied when a keyword is added without explicit targeting.
// 2840 is the provider's location code for the United States.
const (
	DefaultLocationCode = 2840
	DefaultLanguageCode = "en"
)

// SERPClient is the slice of the rank tracking API the service needs.
type SERPClient interface {
	PostTasks(ctx context.Context, key *domain.SEOAPIKey, tasks []seoapi.RankTask) ([]string, error)
	GetTaskResult(ctx context.Context, key *domain.SEOAPIKey, taskID, targetDomain string) (*seoapi.RankResult, error)
}

// KeyPool is the slice of seoapi.KeyService the service needs.
type KeyPool interface {
	Checkout(ctx context.Context, lookups int) (*domain.SEOAPIKey, error)
	Refund(ctx context.Context, keyID string, lookups int)
}

// Service manages tracked keywords and runs the rank tracking cycle.
type Service struct {
	repo   Repository
	client SERPClient
	keys   KeyPool
	lock   distlock.DistLock

	parallel  int
	batchSize int

	// PollInterval is how long the cycle waits between task_get polls.
	PollInterval time.Duration
	// MaxPolls bounds how many times one task is polled before giving up.
	MaxPolls int
}

// NewService creates a keyword tracking service.
func NewService(repo Repository, client SERPClient, keys KeyPool, lock distlock.DistLock, cfg config.TrackingConfig) *Service {
	parallel := cfg.WebsiteParallel
	if parallel <= 0 {
		parallel = 4
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{
		repo:         repo,
		client:       client,
		keys:         keys,
		lock:         lock,
		parallel:     parallel,
		batchSize:    batchSize,
		PollInterval: 10 * time.Second,
		MaxPolls:     30,
	}
}

// AddInput holds the fields for tracking a new keyword.
type AddInput struct {
	WebsiteID    string `json:"website_id"`
	Phrase       string `json:"phrase"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
}

// Add starts tracking a phrase for a website.
func (s *Service) Add(ctx context.Context, orgID string, in AddInput) (*domain.Keyword, error) {
	in.Phrase = strings.TrimSpace(strings.ToLower(in.Phrase))
	if in.WebsiteID == "" {
		return nil, errors.New("website_id is required")
	}
	if in.Phrase == "" {
		return nil, errors.New("phrase is required")
	}
	if in.LocationCode == 0 {
		in.LocationCode = DefaultLocationCode
	}
	if in.LanguageCode == "" {
		in.LanguageCode = DefaultLanguageCode
	}

	k := &domain.Keyword{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		WebsiteID:      in.WebsiteID,
		Phrase:         in.Phrase,
		LocationCode:   in.LocationCode,
		LanguageCode:   in.LanguageCode,
		Active:         true,
	}
	if _, err := s.repo.Create(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

// ListForWebsite returns all keywords tracked for a website.
func (s *Service) ListForWebsite(ctx context.Context, orgID, websiteID string) ([]domain.Keyword, error) {
	return s.repo.ListByWebsite(ctx, orgID, websiteID)
}

// Remove stops tracking a keyword and drops its history.
func (s *Service) Remove(ctx context.Context, orgID, id string) error {
	return s.repo.Delete(ctx, orgID, id)
}

// SetActive pauses or resumes tracking without losing history.
func (s *Service) SetActive(ctx context.Context, orgID, id string, active bool) error {
	return s.repo.SetActive(ctx, orgID, id, active)
}

// Movements returns the current rank report for a website's keywords.
func (s *Service) Movements(ctx context.Context, orgID, websiteID string) ([]domain.RankMovement, error) {
	return s.repo.Movements(ctx, orgID, websiteID)
}

// History returns the snapshot series for one keyword over the last n days.
func (s *Service) History(ctx context.Context, orgID, keywordID string, days int) ([]domain.RankSnapshot, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.repo.History(ctx, orgID, keywordID, since)
}

// RunCycle checks every active keyword across all organizations. Websites
// are processed in parallel, each under its own checked-out API key. A
// distributed lock keeps replicas from running overlapping cycles.
func (s *Service) RunCycle(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring tracking lock: %w", err)
	}
	if !acquired {
		log.Debug().Msg("tracking cycle held by another instance, skipping")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to release tracking lock")
		}
	}()

	targets, err := s.repo.ListTrackTargets(ctx)
	if err != nil {
		return fmt.Errorf("listing track targets: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}

	log.Info().Int("websites", len(targets)).Msg("starting rank tracking cycle")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			if err := s.trackWebsite(gctx, target); err != nil {
				// One site failing should not abort the whole cycle.
				log.Error().Err(err).
					Str("website_id", target.WebsiteID).
					Str("domain", target.Domain).
					Msg("rank tracking failed for website")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("rank tracking cycle complete")
	return nil
}

// TrackWebsite runs an on-demand check for a single website.
func (s *Service) TrackWebsite(ctx context.Context, orgID, websiteID, siteDomain string) error {
	kws, err := s.repo.ListByWebsite(ctx, orgID, websiteID)
	if err != nil {
		return err
	}
	active := kws[:0]
	for _, k := range kws {
		if k.Active {
			active = append(active, k)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return s.trackWebsite(ctx, TrackTarget{
		OrganizationID: orgID,
		WebsiteID:      websiteID,
		Domain:         siteDomain,
		Keywords:       active,
	})
}

func (s *Service) trackWebsite(ctx context.Context, target TrackTarget) error {
	key, err := s.keys.Checkout(ctx, len(target.Keywords))
	if err != nil {
		return fmt.Errorf("checking out api key: %w", err)
	}

	tasks := make([]seoapi.RankTask, 0, len(target.Keywords))
	for _, k := range target.Keywords {
		tasks = append(tasks, seoapi.RankTask{
			Phrase:       k.Phrase,
			TargetDomain: target.Domain,
			LocationCode: k.LocationCode,
			LanguageCode: k.LanguageCode,
		})
	}

	// Post in provider-sized batches. On a mid-batch failure the already
	// posted tasks are still polled; only the unposted lookups get their
	// units back.
	taskIDs := make([]string, 0, len(tasks))
	for start := 0; start < len(tasks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		ids, err := s.client.PostTasks(ctx, key, tasks[start:end])
		if err != nil {
			s.keys.Refund(ctx, key.ID, len(tasks)-len(taskIDs))
			if len(taskIDs) == 0 {
				return fmt.Errorf("posting serp tasks: %w", err)
			}
			log.Warn().Err(err).
				Str("website_id", target.WebsiteID).
				Int("posted", len(taskIDs)).
				Int("total", len(tasks)).
				Msg("serp batch failed partway, polling what was posted")
			break
		}
		taskIDs = append(taskIDs, ids...)
	}

	snaps := make([]domain.RankSnapshot, 0, len(taskIDs))
	for i, taskID := range taskIDs {
		res, err := s.awaitResult(ctx, key, taskID, target.Domain)
		if err != nil {
			metrics.RankChecks.WithLabelValues("error").Inc()
			log.Warn().Err(err).
				Str("keyword", target.Keywords[i].Phrase).
				Str("task_id", taskID).
				Msg("serp task did not complete")
			continue
		}
		metrics.RankChecks.WithLabelValues("ok").Inc()
		snaps = append(snaps, domain.RankSnapshot{
			ID:        uuid.New().String(),
			KeywordID: target.Keywords[i].ID,
			Position:  res.Position,
			FoundURL:  res.FoundURL,
			CheckedAt: res.CheckedAt,
		})
	}

	if len(snaps) == 0 {
		return errors.New("no serp tasks completed")
	}
	if err := s.repo.SaveSnapshots(ctx, snaps); err != nil {
		return fmt.Errorf("saving snapshots: %w", err)
	}

	log.Info().
		Str("website_id", target.WebsiteID).
		Str("domain", target.Domain).
		Int("keywords", len(target.Keywords)).
		Int("snapshots", len(snaps)).
		Msg("rank snapshots saved")
	return nil
}

// awaitResult polls one task until it completes or the poll budget runs out.
func (s *Service) awaitResult(ctx context.Context, key *domain.SEOAPIKey, taskID, targetDomain string) (*seoapi.RankResult, error) {
	for i := 0; i < s.MaxPolls; i++ {
		res, err := s.client.GetTaskResult(ctx, key, taskID, targetDomain)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, seoapi.ErrTaskNotReady) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.PollInterval):
		}
	}
	return nil, fmt.Errorf("task %s: %w", taskID, seoapi.ErrTaskNotReady)
}
