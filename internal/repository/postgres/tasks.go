package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/service/task"
)

var taskSortColumns = map[string]string{
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
	"due_date":   "due_date",
	"created_at": "created_at",
}

// TaskRepo implements task.Repository against PostgreSQL.
type TaskRepo struct{ db *sql.DB }

// NewTaskRepo creates a Postgres-backed task repository.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

const taskColumns = `id, organization_id, website_id, assignee_id, title,
	COALESCE(description,''), status, priority, due_date, completed_at,
	created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*domain.Task, error) {
	t := &domain.Task{}
	var websiteID, assigneeID sql.NullString
	var dueDate, completedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.OrganizationID, &websiteID, &assigneeID, &t.Title,
		&t.Description, &t.Status, &t.Priority, &dueDate, &completedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.WebsiteID = strPtr(websiteID)
	t.AssigneeID = strPtr(assigneeID)
	t.DueDate = timePtr(dueDate)
	t.CompletedAt = timePtr(completedAt)
	return t, nil
}

func (r *TaskRepo) Get(ctx context.Context, orgID, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND organization_id = $2",
		id, orgID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (r *TaskRepo) List(ctx context.Context, orgID string, f task.ListFilter) ([]domain.Task, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE organization_id = $1"
	args := []interface{}{orgID}
	idx := 2

	if f.WebsiteID != "" {
		where += fmt.Sprintf(" AND website_id = $%d", idx)
		args = append(args, f.WebsiteID)
		idx++
	}
	if f.AssigneeID != "" {
		where += fmt.Sprintf(" AND assignee_id = $%d", idx)
		args = append(args, f.AssigneeID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Priority != "" {
		where += fmt.Sprintf(" AND priority = $%d", idx)
		args = append(args, f.Priority)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND title ILIKE $%d", idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	q := "SELECT " + taskColumns + " FROM tasks" + where +
		orderClause(f.SortBy, f.SortDesc, taskSortColumns, "created_at") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks
			(id, organization_id, website_id, assignee_id, title, description,
			 status, priority, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`, t.ID, t.OrganizationID, nullStr(t.WebsiteID), nullStr(t.AssigneeID),
		t.Title, t.Description, t.Status, t.Priority, t.DueDate)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return t.ID, nil
}

func (r *TaskRepo) Update(ctx context.Context, orgID, id string, u task.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Priority != nil {
		add("priority", *u.Priority)
	}
	if u.AssigneeID != nil {
		add("assignee_id", nullStr(u.AssigneeID))
	}
	if u.WebsiteID != nil {
		add("website_id", nullStr(u.WebsiteID))
	}
	if u.DueDate != nil {
		add("due_date", *u.DueDate)
	} else if u.ClearDue {
		sets = append(sets, "due_date = NULL")
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND organization_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, orgID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = $1 AND organization_id = $2", id, orgID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, orgID, id string, status domain.TaskStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1,
		    completed_at = CASE WHEN $1 = 'done' THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
	`, status, id, orgID)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) ListDueBefore(ctx context.Context, orgID string, cutoff time.Time) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+taskColumns+` FROM tasks
		WHERE organization_id = $1 AND status IN ('open','in_progress')
		  AND due_date IS NOT NULL AND due_date <= $2
		ORDER BY due_date ASC`,
		orgID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
