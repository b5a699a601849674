package domain

import "time"

// TaskStatus enumerates the lifecycle states of a back-office task.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

// TaskPriority enumerates task urgency levels.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskOpen, TaskInProgress, TaskDone, TaskCancelled:
		return true
	}
	return false
}

// Task represents a unit of back-office work, optionally tied to a website.
type Task struct {
	ID             string       `json:"id" db:"id"`
	OrganizationID string       `json:"organization_id" db:"organization_id"`
	WebsiteID      *string      `json:"website_id" db:"website_id"`
	AssigneeID     *string      `json:"assignee_id" db:"assignee_id"`
	Title          string       `json:"title" db:"title"`
	Description    string       `json:"description" db:"description"`
	Status         TaskStatus   `json:"status" db:"status"`
	Priority       TaskPriority `json:"priority" db:"priority"`
	DueDate        *time.Time   `json:"due_date" db:"due_date"`

	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the task is in a final state.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskDone || t.Status == TaskCancelled
}

// DueSoon returns true if the task has a due date within the given window
// and is still open.
func (t *Task) DueSoon(window time.Duration) bool {
	if t.DueDate == nil || t.IsTerminal() {
		return false
	}
	return time.Until(*t.DueDate) <= window
}
