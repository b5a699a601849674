package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// DefaultDueSoonWindow is how far ahead the due-soon report looks.
const DefaultDueSoonWindow = 48 * time.Hour

// Service implements task business logic.
type Service struct {
	repo Repository
}

// NewService creates a task service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single task.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Task, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns tasks matching the filter.
func (s *Service) List(ctx context.Context, orgID string, f ListFilter) ([]domain.Task, int, error) {
	return s.repo.List(ctx, orgID, f)
}

// Create validates and persists a new open task.
func (s *Service) Create(ctx context.Context, orgID string, input CreateInput) (*domain.Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	t := &domain.Task{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Title:          input.Title,
		Description:    input.Description,
		Status:         domain.TaskOpen,
		Priority:       priority,
		DueDate:        input.DueDate,
	}
	if input.WebsiteID != "" {
		t.WebsiteID = &input.WebsiteID
	}
	if input.AssigneeID != "" {
		t.AssigneeID = &input.AssigneeID
	}

	id, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

// Update modifies mutable task fields.
func (s *Service) Update(ctx context.Context, orgID, id string, u UpdateFields) error {
	return s.repo.Update(ctx, orgID, id, u)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.repo.Delete(ctx, orgID, id)
}

// Transition moves a task to a new status. Closed tasks cannot move.
func (s *Service) Transition(ctx context.Context, orgID, id string, to domain.TaskStatus) (*domain.Task, error) {
	if !domain.ValidTaskStatus(to) {
		return nil, fmt.Errorf("unknown task status %q", to)
	}

	t, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if t.IsTerminal() {
		return nil, ErrAlreadyClosed
	}

	if err := s.repo.UpdateStatus(ctx, orgID, id, to); err != nil {
		return nil, err
	}
	t.Status = to

	log.Debug().Str("task_id", id).Str("status", string(to)).Msg("task transitioned")
	return t, nil
}

// Complete marks a task done.
func (s *Service) Complete(ctx context.Context, orgID, id string) (*domain.Task, error) {
	return s.Transition(ctx, orgID, id, domain.TaskDone)
}

// DueSoon returns open tasks due within the window (default 48h).
func (s *Service) DueSoon(ctx context.Context, orgID string, window time.Duration) ([]domain.Task, error) {
	if window <= 0 {
		window = DefaultDueSoonWindow
	}
	return s.repo.ListDueBefore(ctx, orgID, time.Now().Add(window))
}

// CreateInput holds the fields for creating a new task.
type CreateInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	WebsiteID   string              `json:"website_id"`
	AssigneeID  string              `json:"assignee_id"`
	DueDate     *time.Time          `json:"due_date"`
}
