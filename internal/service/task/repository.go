package task

import (
	"context"
	"time"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// Repository defines the data access contract for tasks.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single task. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, orgID, id string) (*domain.Task, error)

	// List returns tasks matching the given filter plus the unpaginated total.
	List(ctx context.Context, orgID string, filter ListFilter) ([]domain.Task, int, error)

	// Create inserts a new task and returns its ID.
	Create(ctx context.Context, t *domain.Task) (string, error)

	// Update modifies a task. Only non-nil fields in the update are applied.
	Update(ctx context.Context, orgID, id string, u UpdateFields) error

	// Delete removes a task.
	Delete(ctx context.Context, orgID, id string) error

	// UpdateStatus transitions a task's status, stamping completed_at when
	// the new status is done.
	UpdateStatus(ctx context.Context, orgID, id string, status domain.TaskStatus) error

	// ListDueBefore returns open/in-progress tasks due before the cutoff.
	ListDueBefore(ctx context.Context, orgID string, cutoff time.Time) ([]domain.Task, error)
}

// ListFilter controls pagination and filtering for task lists.
type ListFilter struct {
	WebsiteID  string
	AssigneeID string
	Status     string
	Priority   string
	Search     string
	SortBy     string // whitelist-validated by the repository
	SortDesc   bool
	Limit      int
	Offset     int
}

// UpdateFields holds the mutable fields for a task update.
// Nil fields are not applied.
type UpdateFields struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *domain.TaskPriority `json:"priority"`
	AssigneeID  *string              `json:"assignee_id"`
	WebsiteID   *string              `json:"website_id"`
	DueDate     *time.Time           `json:"due_date"`
	ClearDue    bool                 `json:"clear_due"`
}
