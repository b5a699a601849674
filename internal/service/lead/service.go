package lead

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// Service implements lead business logic. All public methods are safe for
// concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a lead service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Lead, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, orgID string, f ListFilter) ([]domain.Lead, int, error) {
	return s.repo.List(ctx, orgID, f)
}

// Capture validates and persists a new inbound lead in "new" status.
// Public lead-capture forms post through here, so validation is strict.
func (s *Service) Capture(ctx context.Context, orgID string, input CaptureInput) (*domain.Lead, error) {
	if input.WebsiteID == "" {
		return nil, ErrWebsiteRequired
	}
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.Email == "" && input.Phone == "" {
		return nil, fmt.Errorf("email or phone is required")
	}

	source := input.Source
	if source == "" {
		source = domain.LeadSourceForm
	}

	l := &domain.Lead{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		WebsiteID:      input.WebsiteID,
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Message:        input.Message,
		Source:         source,
		Status:         domain.LeadNew,
		EstimatedValue: input.EstimatedValue,
	}

	id, err := s.repo.Create(ctx, l)
	if err != nil {
		return nil, err
	}
	l.ID = id

	log.Info().
		Str("lead_id", l.ID).
		Str("website_id", l.WebsiteID).
		Str("source", string(l.Source)).
		Msg("lead captured")
	return l, nil
}

// Update modifies mutable lead fields.
func (s *Service) Update(ctx context.Context, orgID, id string, u UpdateFields) error {
	return s.repo.Update(ctx, orgID, id, u)
}

// Delete removes a lead.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.repo.Delete(ctx, orgID, id)
}

// Transition moves a lead through the pipeline, enforcing the allowed
// status graph.
func (s *Service) Transition(ctx context.Context, orgID, id string, to domain.LeadStatus) (*domain.Lead, error) {
	if !domain.ValidLeadStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	l, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionLead(l.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, orgID, id, to); err != nil {
		return nil, err
	}
	l.Status = to

	log.Info().
		Str("lead_id", id).
		Str("status", string(to)).
		Msg("lead transitioned")
	return l, nil
}

// PipelineCounts returns lead counts per status for the dashboard.
func (s *Service) PipelineCounts(ctx context.Context, orgID string) (map[domain.LeadStatus]int, error) {
	return s.repo.CountByStatus(ctx, orgID)
}

// CaptureInput holds the fields for capturing a new lead.
type CaptureInput struct {
	WebsiteID      string            `json:"website_id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	Message        string            `json:"message"`
	Source         domain.LeadSource `json:"source"`
	EstimatedValue float64           `json:"estimated_value"`
}
