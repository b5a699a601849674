package lead

import (
	"context"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// Repository defines the data access contract for leads.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single lead. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, orgID, id string) (*domain.Lead, error)

	// List returns leads matching the given filter plus the unpaginated total.
	List(ctx context.Context, orgID string, filter ListFilter) ([]domain.Lead, int, error)

	// Create inserts a new lead and returns its ID.
	Create(ctx context.Context, l *domain.Lead) (string, error)

	// Update modifies a lead. Only non-nil fields in the update are applied.
	Update(ctx context.Context, orgID, id string, u UpdateFields) error

	// Delete removes a lead.
	Delete(ctx context.Context, orgID, id string) error

	// UpdateStatus transitions a lead's status and stamps contacted_at on
	// the first move out of "new".
	UpdateStatus(ctx context.Context, orgID, id string, status domain.LeadStatus) error

	// CountByStatus returns lead counts per pipeline status.
	CountByStatus(ctx context.Context, orgID string) (map[domain.LeadStatus]int, error)
}

// ListFilter controls pagination and filtering for lead lists.
type ListFilter struct {
	WebsiteID string
	ClientID  string
	Status    string
	Source    string
	Search    string
	SortBy    string // whitelist-validated by the repository
	SortDesc  bool
	Limit     int
	Offset    int
}

// UpdateFields holds the mutable fields for a lead update.
// Nil fields are not applied.
type UpdateFields struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	Phone          *string  `json:"phone"`
	Message        *string  `json:"message"`
	ClientID       *string  `json:"client_id"`
	EstimatedValue *float64 `json:"estimated_value"`
}
