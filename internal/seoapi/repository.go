package seoapi

import (
	"context"
	"time"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// KeyRepository provides data access for the API credential pool.
type KeyRepository interface {
	Get(ctx context.Context, id string) (*domain.SEOAPIKey, error)
	List(ctx context.Context) ([]domain.SEOAPIKey, error)
	Create(ctx context.Context, k *domain.SEOAPIKey) (string, error)
	Delete(ctx context.Context, id string) error

	// ClaimAvailable atomically reserves units on one enabled key with
	// enough remaining budget and returns that key. Returns
	// ErrNoKeysAvailable when the whole pool is spent.
	ClaimAvailable(ctx context.Context, units int64) (*domain.SEOAPIKey, error)

	// RefundUnits returns units to a key after a failed lookup so a wire
	// error does not burn budget.
	RefundUnits(ctx context.Context, id string, units int64) error

	// SetDisabled flips a key in or out of the rotation.
	SetDisabled(ctx context.Context, id string, disabled bool) error

	// ResetDailyUsage zeroes units_used on every key whose reset_at has
	// passed and advances reset_at to the next boundary. Returns the
	// number of keys reset.
	ResetDailyUsage(ctx context.Context, now time.Time) (int64, error)
}
