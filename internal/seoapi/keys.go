package seoapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/metrics"
	"github.com/lumenlocal/rankdesk/internal/pkg/distlock"
)

// KeyService manages the credential pool: checkout for lookups, refunds on
// failure, and the daily usage reset.
type KeyService struct {
	repo           KeyRepository
	lock           distlock.DistLock
	unitsPerLookup int64
}

// NewKeyService creates a key pool service. unitsPerLookup is the cost
// charged against a key for each SERP check.
func NewKeyService(repo KeyRepository, lock distlock.DistLock, unitsPerLookup int) *KeyService {
	if unitsPerLookup <= 0 {
		unitsPerLookup = 10
	}
	return &KeyService{
		repo:           repo,
		lock:           lock,
		unitsPerLookup: int64(unitsPerLookup),
	}
}

// UnitsPerLookup returns the per-check unit cost.
func (s *KeyService) UnitsPerLookup() int64 { return s.unitsPerLookup }

// Checkout reserves budget for n lookups on a single key and returns it.
// The claim happens in one statement so two concurrent checkouts can never
// drive a key past its daily limit.
func (s *KeyService) Checkout(ctx context.Context, lookups int) (*domain.SEOAPIKey, error) {
	if lookups <= 0 {
		lookups = 1
	}
	key, err := s.repo.ClaimAvailable(ctx, int64(lookups)*s.unitsPerLookup)
	if err != nil {
		if errors.Is(err, ErrNoKeysAvailable) {
			metrics.APIKeyPoolExhausted.Inc()
		}
		return nil, err
	}
	return key, nil
}

// Refund returns the budget for n lookups to a key. Used when the wire call
// failed after checkout.
func (s *KeyService) Refund(ctx context.Context, keyID string, lookups int) {
	if lookups <= 0 {
		return
	}
	if err := s.repo.RefundUnits(ctx, keyID, int64(lookups)*s.unitsPerLookup); err != nil {
		log.Warn().Err(err).Str("key_id", keyID).Msg("failed to refund api key units")
	}
}

// ResetDaily zeroes usage on keys whose reset boundary has passed. A
// distributed lock keeps multiple worker replicas from racing the reset.
func (s *KeyService) ResetDaily(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring reset lock: %w", err)
	}
	if !acquired {
		log.Debug().Msg("api key reset held by another instance, skipping")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to release reset lock")
		}
	}()

	n, err := s.repo.ResetDailyUsage(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resetting key usage: %w", err)
	}
	if n > 0 {
		log.Info().Int64("keys", n).Msg("reset daily api key usage")
	}
	return nil
}

// CreateInput holds the fields needed to add a credential to the pool.
type CreateInput struct {
	Label      string `json:"label"`
	Login      string `json:"login"`
	Secret     string `json:"secret"`
	DailyLimit int64  `json:"daily_limit"`
}

// CreateKey adds a credential to the pool.
func (s *KeyService) CreateKey(ctx context.Context, in CreateInput) (*domain.SEOAPIKey, error) {
	if in.Login == "" || in.Secret == "" {
		return nil, errors.New("login and secret are required")
	}
	if in.DailyLimit <= 0 {
		return nil, errors.New("daily_limit must be positive")
	}

	key := &domain.SEOAPIKey{
		ID:         uuid.New().String(),
		Label:      in.Label,
		Login:      in.Login,
		Secret:     in.Secret,
		DailyLimit: in.DailyLimit,
		ResetAt:    nextMidnightUTC(time.Now().UTC()),
	}
	if _, err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}
	log.Info().Str("key_id", key.ID).Str("label", key.Label).Msg("api key added to pool")
	return key, nil
}

// ListKeys returns the whole pool with current usage.
func (s *KeyService) ListKeys(ctx context.Context) ([]domain.SEOAPIKey, error) {
	return s.repo.List(ctx)
}

// SetDisabled flips a key in or out of the rotation.
func (s *KeyService) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return s.repo.SetDisabled(ctx, id, disabled)
}

// DeleteKey removes a credential from the pool.
func (s *KeyService) DeleteKey(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func nextMidnightUTC(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
