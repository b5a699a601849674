package keywords

import (
	"context"
	"time"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// TrackTarget is one website due for a tracking run, with its active
// keywords preloaded.
type TrackTarget struct {
	OrganizationID string
	WebsiteID      string
	Domain         string
	Keywords       []domain.Keyword
}

// Repository provides data access for keywords and rank snapshots.
type Repository interface {
	Get(ctx context.Context, orgID, id string) (*domain.Keyword, error)
	ListByWebsite(ctx context.Context, orgID, websiteID string) ([]domain.Keyword, error)
	Create(ctx context.Context, k *domain.Keyword) (string, error)
	Delete(ctx context.Context, orgID, id string) error
	SetActive(ctx context.Context, orgID, id string, active bool) error

	// ListTrackTargets returns every website, across all organizations,
	// that has at least one active keyword. Used by the tracking cycle.
	ListTrackTargets(ctx context.Context) ([]TrackTarget, error)

	// SaveSnapshots inserts a batch of rank observations.
	SaveSnapshots(ctx context.Context, snaps []domain.RankSnapshot) error

	// Movements returns the latest position and the diff against the
	// previous snapshot for each active keyword of a website.
	Movements(ctx context.Context, orgID, websiteID string) ([]domain.RankMovement, error)

	// History returns snapshots for one keyword since the given time,
	// oldest first.
	History(ctx context.Context, orgID, keywordID string, since time.Time) ([]domain.RankSnapshot, error)
}
