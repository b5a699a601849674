package website

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// Service implements website portfolio business logic.
type Service struct {
	repo Repository
}

// NewService creates a website service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single website.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Website, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Lookup returns a website by ID without org scoping. Callers must not
// expose anything beyond the owning organization to anonymous clients.
func (s *Service) Lookup(ctx context.Context, id string) (*domain.Website, error) {
	return s.repo.Lookup(ctx, id)
}

// List returns websites matching the filter.
func (s *Service) List(ctx context.Context, orgID string, f ListFilter) ([]domain.Website, int, error) {
	return s.repo.List(ctx, orgID, f)
}

// Create validates and persists a new website in draft status.
func (s *Service) Create(ctx context.Context, orgID string, input CreateInput) (*domain.Website, error) {
	domainName := normalizeDomain(input.Domain)
	if domainName == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if input.Niche == "" {
		return nil, fmt.Errorf("niche is required")
	}

	w := &domain.Website{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Domain:         domainName,
		Niche:          input.Niche,
		City:           input.City,
		Region:         input.Region,
		Status:         domain.WebsiteDraft,
		Notes:          input.Notes,
	}

	id, err := s.repo.Create(ctx, w)
	if err != nil {
		return nil, err
	}
	w.ID = id

	log.Info().Str("website_id", w.ID).Str("domain", w.Domain).Msg("website created")
	return w, nil
}

// Update modifies mutable website fields. Status changes are validated.
func (s *Service) Update(ctx context.Context, orgID, id string, u UpdateFields) error {
	if u.Status != nil && !domain.ValidWebsiteStatus(*u.Status) {
		return fmt.Errorf("unknown website status %q", *u.Status)
	}
	return s.repo.Update(ctx, orgID, id, u)
}

// Delete removes a website. Rented sites must be unrented first.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	w, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if w.IsRented() {
		return ErrAlreadyRented
	}
	return s.repo.Delete(ctx, orgID, id)
}

// Rent binds a site to a paying client. A rate of 0 keeps the site's
// existing monthly_rent.
func (s *Service) Rent(ctx context.Context, orgID, id, clientID string, monthlyRent float64) (*domain.Website, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	w, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if w.IsRented() {
		return nil, ErrAlreadyRented
	}
	if monthlyRent == 0 {
		monthlyRent = w.MonthlyRent
	}

	if err := s.repo.Rent(ctx, orgID, id, clientID, monthlyRent); err != nil {
		return nil, err
	}
	w.Status = domain.WebsiteRented
	w.ClientID = &clientID
	w.MonthlyRent = monthlyRent

	log.Info().
		Str("website_id", id).
		Str("client_id", clientID).
		Float64("monthly_rent", monthlyRent).
		Msg("website rented")
	return w, nil
}

// Unrent releases a site back to ranking status.
func (s *Service) Unrent(ctx context.Context, orgID, id string) error {
	w, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if !w.IsRented() {
		return ErrNotRented
	}
	return s.repo.Unrent(ctx, orgID, id)
}

// PortfolioStats returns the dashboard summary for the org's portfolio.
func (s *Service) PortfolioStats(ctx context.Context, orgID string) (*PortfolioStats, error) {
	return s.repo.PortfolioStats(ctx, orgID)
}

// normalizeDomain lowercases and strips scheme/trailing slash so that
// "HTTPS://Plumbers-Dallas.com/" and "plumbers-dallas.com" dedupe.
func normalizeDomain(d string) string {
	d = strings.TrimSpace(strings.ToLower(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, "/")
}

// CreateInput holds the fields for creating a new website.
type CreateInput struct {
	Domain string `json:"domain"`
	Niche  string `json:"niche"`
	City   string `json:"city"`
	Region string `json:"region"`
	Notes  string `json:"notes"`
}
