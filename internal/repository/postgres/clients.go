package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// ErrClientHasWebsites is returned when deleting a client that still rents
// one or more websites.
var ErrClientHasWebsites = errors.New("client still has rented websites")

var clientSortColumns = map[string]string{
	"business_name": "business_name",
	"monthly_rate":  "monthly_rate",
	"created_at":    "created_at",
}

// ClientListFilter controls pagination and filtering for client lists.
type ClientListFilter struct {
	Active   *bool
	Search   string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// ClientUpdateFields holds the mutable fields for a client update.
// Nil fields are not applied.
type ClientUpdateFields struct {
	BusinessName *string  `json:"business_name"`
	ContactName  *string  `json:"contact_name"`
	Email        *string  `json:"email"`
	Phone        *string  `json:"phone"`
	MonthlyRate  *float64 `json:"monthly_rate"`
	Active       *bool    `json:"active"`
	Notes        *string  `json:"notes"`
}

// ClientRepo provides data access for renting clients.
type ClientRepo struct{ db *sql.DB }

// NewClientRepo creates a Postgres-backed client repository.
func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{db: db} }

func (r *ClientRepo) Get(ctx context.Context, orgID, id string) (*domain.Client, error) {
	c := &domain.Client{}
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.organization_id, c.business_name, COALESCE(c.contact_name,''),
		       COALESCE(c.email,''), COALESCE(c.phone,''), c.monthly_rate, c.active,
		       COALESCE(c.notes,''),
		       (SELECT COUNT(*) FROM websites w WHERE w.client_id = c.id),
		       c.created_at, c.updated_at
		FROM clients c
		WHERE c.id = $1 AND c.organization_id = $2
	`, id, orgID).Scan(
		&c.ID, &c.OrganizationID, &c.BusinessName, &c.ContactName,
		&c.Email, &c.Phone, &c.MonthlyRate, &c.Active,
		&c.Notes, &c.WebsiteCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (r *ClientRepo) List(ctx context.Context, orgID string, f ClientListFilter) ([]domain.Client, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE organization_id = $1"
	args := []interface{}{orgID}
	idx := 2

	if f.Active != nil {
		where += fmt.Sprintf(" AND active = $%d", idx)
		args = append(args, *f.Active)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (business_name ILIKE $%d OR contact_name ILIKE $%d OR email ILIKE $%d)", idx, idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	q := `
		SELECT id, organization_id, business_name, COALESCE(contact_name,''),
		       COALESCE(email,''), COALESCE(phone,''), monthly_rate, active,
		       COALESCE(notes,''), created_at, updated_at
		FROM clients` + where +
		orderClause(f.SortBy, f.SortDesc, clientSortColumns, "created_at") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(
			&c.ID, &c.OrganizationID, &c.BusinessName, &c.ContactName,
			&c.Email, &c.Phone, &c.MonthlyRate, &c.Active,
			&c.Notes, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *ClientRepo) Create(ctx context.Context, c *domain.Client) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients
			(id, organization_id, business_name, contact_name, email, phone,
			 monthly_rate, active, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`, c.ID, c.OrganizationID, c.BusinessName, c.ContactName, c.Email, c.Phone,
		c.MonthlyRate, c.Active, c.Notes)
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}
	return c.ID, nil
}

func (r *ClientRepo) Update(ctx context.Context, orgID, id string, u ClientUpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.BusinessName != nil {
		add("business_name", *u.BusinessName)
	}
	if u.ContactName != nil {
		add("contact_name", *u.ContactName)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.MonthlyRate != nil {
		add("monthly_rate", *u.MonthlyRate)
	}
	if u.Active != nil {
		add("active", *u.Active)
	}
	if u.Notes != nil {
		add("notes", *u.Notes)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf("UPDATE clients SET %s WHERE id = $%d AND organization_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, orgID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a client. Clients that still rent websites are refused;
// unrent the sites first.
func (r *ClientRepo) Delete(ctx context.Context, orgID, id string) error {
	var rented int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM websites WHERE client_id = $1 AND organization_id = $2",
		id, orgID).Scan(&rented)
	if err != nil {
		return fmt.Errorf("count client websites: %w", err)
	}
	if rented > 0 {
		return ErrClientHasWebsites
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM clients WHERE id = $1 AND organization_id = $2", id, orgID)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
