package website

import (
	"context"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// Repository defines the data access contract for websites.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single website. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, orgID, id string) (*domain.Website, error)

	// Lookup returns a website by ID alone. Used by the public lead
	// capture endpoint to resolve the owning organization.
	Lookup(ctx context.Context, id string) (*domain.Website, error)

	// List returns websites matching the filter plus the unpaginated total.
	List(ctx context.Context, orgID string, filter ListFilter) ([]domain.Website, int, error)

	// Create inserts a new website and returns its ID. Returns
	// ErrDomainTaken when the domain is already registered for the org.
	Create(ctx context.Context, w *domain.Website) (string, error)

	// Update modifies a website. Only non-nil fields in the update are applied.
	Update(ctx context.Context, orgID, id string, u UpdateFields) error

	// Delete removes a website. Rented sites cannot be deleted.
	Delete(ctx context.Context, orgID, id string) error

	// Rent binds the site to a client, sets the rate, and stamps rented_at.
	Rent(ctx context.Context, orgID, id, clientID string, monthlyRent float64) error

	// Unrent detaches the client and returns the site to ranking status.
	Unrent(ctx context.Context, orgID, id string) error

	// PortfolioStats returns counts by status and the monthly rent roll.
	PortfolioStats(ctx context.Context, orgID string) (*PortfolioStats, error)
}

// ListFilter controls pagination and filtering for website lists.
type ListFilter struct {
	Status   string
	ClientID string
	Niche    string
	Search   string
	SortBy   string // whitelist-validated by the repository
	SortDesc bool
	Limit    int
	Offset   int
}

// UpdateFields holds the mutable fields for a website update.
// Nil fields are not applied.
type UpdateFields struct {
	Niche       *string               `json:"niche"`
	City        *string               `json:"city"`
	Region      *string               `json:"region"`
	Status      *domain.WebsiteStatus `json:"status"`
	MonthlyRent *float64              `json:"monthly_rent"`
	Notes       *string               `json:"notes"`
}

// PortfolioStats summarizes the org's portfolio for the dashboard.
type PortfolioStats struct {
	ByStatus        map[domain.WebsiteStatus]int `json:"by_status"`
	MonthlyRentRoll float64                      `json:"monthly_rent_roll"`
}
