package task_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/service/task"
)

type memRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newMemRepo() *memRepo {
	return &memRepo{tasks: make(map[string]*domain.Task)}
}

func (m *memRepo) Get(_ context.Context, orgID, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, task.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, orgID string, f task.ListFilter) ([]domain.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.OrganizationID != orgID {
			continue
		}
		if f.Status != "" && string(t.Status) != f.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (m *memRepo) Create(_ context.Context, t *domain.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return t.ID, nil
}

func (m *memRepo) Update(_ context.Context, orgID, id string, u task.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return task.ErrNotFound
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
	if u.ClearDue {
		t.DueDate = nil
	}
	return nil
}

func (m *memRepo) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return task.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, orgID, id string, status domain.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return task.ErrNotFound
	}
	t.Status = status
	if status == domain.TaskDone {
		now := time.Now()
		t.CompletedAt = &now
	}
	return nil
}

func (m *memRepo) ListDueBefore(_ context.Context, orgID string, cutoff time.Time) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.OrganizationID != orgID || t.IsTerminal() || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func TestCreateDefaults(t *testing.T) {
	svc := task.NewService(newMemRepo())

	created, err := svc.Create(context.Background(), "org1", task.CreateInput{Title: "Update GMB listing"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.Status != domain.TaskOpen {
		t.Errorf("status = %s, want open", created.Status)
	}
	if created.Priority != domain.PriorityNormal {
		t.Errorf("priority = %s, want normal", created.Priority)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := task.NewService(newMemRepo())
	if _, err := svc.Create(context.Background(), "org1", task.CreateInput{}); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestCompleteAndReopen(t *testing.T) {
	svc := task.NewService(newMemRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, "org1", task.CreateInput{Title: "Renew domain"})
	if err != nil {
		t.Fatal(err)
	}

	done, err := svc.Complete(ctx, "org1", created.ID)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if done.Status != domain.TaskDone {
		t.Errorf("status = %s, want done", done.Status)
	}

	// Closed tasks cannot move again.
	if _, err := svc.Transition(ctx, "org1", created.ID, domain.TaskInProgress); !errors.Is(err, task.ErrAlreadyClosed) {
		t.Errorf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestDueSoon(t *testing.T) {
	svc := task.NewService(newMemRepo())
	ctx := context.Background()

	soon := time.Now().Add(6 * time.Hour)
	far := time.Now().Add(200 * time.Hour)

	if _, err := svc.Create(ctx, "org1", task.CreateInput{Title: "soon", DueDate: &soon}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "org1", task.CreateInput{Title: "far", DueDate: &far}); err != nil {
		t.Fatal(err)
	}

	due, err := svc.DueSoon(ctx, "org1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].Title != "soon" {
		t.Errorf("DueSoon() = %v, want only the near task", due)
	}
}
