package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/service/lead"
)

var leadSortColumns = map[string]string{
	"name":            "name",
	"status":          "status",
	"estimated_value": "estimated_value",
	"created_at":      "created_at",
}

// LeadRepo implements lead.Repository against PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadColumns = `id, organization_id, website_id, client_id, name,
	COALESCE(email,''), COALESCE(phone,''), COALESCE(message,''),
	source, status, estimated_value, contacted_at, created_at, updated_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*domain.Lead, error) {
	l := &domain.Lead{}
	var clientID sql.NullString
	var contactedAt sql.NullTime
	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.WebsiteID, &clientID, &l.Name,
		&l.Email, &l.Phone, &l.Message,
		&l.Source, &l.Status, &l.EstimatedValue, &contactedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.ClientID = strPtr(clientID)
	l.ContactedAt = timePtr(contactedAt)
	return l, nil
}

func (r *LeadRepo) Get(ctx context.Context, orgID, id string) (*domain.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE id = $1 AND organization_id = $2",
		id, orgID)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, lead.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) List(ctx context.Context, orgID string, f lead.ListFilter) ([]domain.Lead, int, error) {
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
	if f.ClientID != "" {
		where += fmt.Sprintf(" AND client_id = $%d", idx)
		args = append(args, f.ClientID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Source != "" {
		where += fmt.Sprintf(" AND source = $%d", idx)
		args = append(args, f.Source)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", idx, idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	q := "SELECT " + leadColumns + " FROM leads" + where +
		orderClause(f.SortBy, f.SortDesc, leadSortColumns, "created_at") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead) (string, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads
			(id, organization_id, website_id, client_id, name, email, phone,
			 message, source, status, estimated_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`, l.ID, l.OrganizationID, l.WebsiteID, nullStr(l.ClientID), l.Name, l.Email,
		l.Phone, l.Message, l.Source, l.Status, l.EstimatedValue)
	if err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}
	return l.ID, nil
}

func (r *LeadRepo) Update(ctx context.Context, orgID, id string, u lead.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.Message != nil {
		add("message", *u.Message)
	}
	if u.ClientID != nil {
		add("client_id", nullStr(u.ClientID))
	}
	if u.EstimatedValue != nil {
		add("estimated_value", *u.EstimatedValue)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d AND organization_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, orgID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return lead.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM leads WHERE id = $1 AND organization_id = $2", id, orgID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return lead.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) UpdateStatus(ctx context.Context, orgID, id string, status domain.LeadStatus) error {
	// contacted_at is stamped once, on the first move out of "new".
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads
		SET status = $1,
		    contacted_at = COALESCE(contacted_at, CASE WHEN $1 <> 'new' THEN NOW() END),
		    updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
	`, status, id, orgID)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return lead.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) CountByStatus(ctx context.Context, orgID string) (map[domain.LeadStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM leads
		WHERE organization_id = $1
		GROUP BY status
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.LeadStatus]int)
	for rows.Next() {
		var status domain.LeadStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
