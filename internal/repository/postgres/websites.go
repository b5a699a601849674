package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/service/website"
)

// websiteSortColumns whitelists user-selectable sort keys.
var websiteSortColumns = map[string]string{
	"domain":       "domain",
	"status":       "status",
	"monthly_rent": "monthly_rent",
	"created_at":   "created_at",
}

// WebsiteRepo implements website.Repository against PostgreSQL.
type WebsiteRepo struct{ db *sql.DB }

// NewWebsiteRepo creates a Postgres-backed website repository.
func NewWebsiteRepo(db *sql.DB) *WebsiteRepo { return &WebsiteRepo{db: db} }

func (r *WebsiteRepo) Get(ctx context.Context, orgID, id string) (*domain.Website, error) {
	w := &domain.Website{}
	var clientID sql.NullString
	var rentedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT w.id, w.organization_id, w.client_id, w.domain, w.niche,
		       COALESCE(w.city,''), COALESCE(w.region,''), w.status,
		       w.monthly_rent, COALESCE(w.notes,''), w.rented_at,
		       (SELECT COUNT(*) FROM leads l WHERE l.website_id = w.id),
		       (SELECT COUNT(*) FROM keywords k WHERE k.website_id = w.id AND k.active),
		       w.created_at, w.updated_at
		FROM websites w
		WHERE w.id = $1 AND w.organization_id = $2
	`, id, orgID).Scan(
		&w.ID, &w.OrganizationID, &clientID, &w.Domain, &w.Niche,
		&w.City, &w.Region, &w.Status,
		&w.MonthlyRent, &w.Notes, &rentedAt,
		&w.LeadCount, &w.KeywordCount,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, website.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get website: %w", err)
	}
	w.ClientID = strPtr(clientID)
	w.RentedAt = timePtr(rentedAt)
	return w, nil
}

// Lookup fetches a website by ID alone. The public capture endpoint uses
// it to resolve the owning organization, so no counters are loaded.
func (r *WebsiteRepo) Lookup(ctx context.Context, id string) (*domain.Website, error) {
	w := &domain.Website{}
	var clientID sql.NullString
	var rentedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, client_id, domain, niche,
		       COALESCE(city,''), COALESCE(region,''), status,
		       monthly_rent, COALESCE(notes,''), rented_at, created_at, updated_at
		FROM websites
		WHERE id = $1
	`, id).Scan(
		&w.ID, &w.OrganizationID, &clientID, &w.Domain, &w.Niche,
		&w.City, &w.Region, &w.Status,
		&w.MonthlyRent, &w.Notes, &rentedAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, website.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup website: %w", err)
	}
	w.ClientID = strPtr(clientID)
	w.RentedAt = timePtr(rentedAt)
	return w, nil
}

func (r *WebsiteRepo) List(ctx context.Context, orgID string, f website.ListFilter) ([]domain.Website, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE organization_id = $1"
	args := []interface{}{orgID}
	idx := 2

	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.ClientID != "" {
		where += fmt.Sprintf(" AND client_id = $%d", idx)
		args = append(args, f.ClientID)
		idx++
	}
	if f.Niche != "" {
		where += fmt.Sprintf(" AND niche = $%d", idx)
		args = append(args, f.Niche)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (domain ILIKE $%d OR city ILIKE $%d)", idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM websites"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count websites: %w", err)
	}

	q := `
		SELECT id, organization_id, client_id, domain, niche,
		       COALESCE(city,''), COALESCE(region,''), status,
		       monthly_rent, COALESCE(notes,''), rented_at, created_at, updated_at
		FROM websites` + where +
		orderClause(f.SortBy, f.SortDesc, websiteSortColumns, "created_at") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var out []domain.Website
	for rows.Next() {
		var w domain.Website
		var clientID sql.NullString
		var rentedAt sql.NullTime
		if err := rows.Scan(
			&w.ID, &w.OrganizationID, &clientID, &w.Domain, &w.Niche,
			&w.City, &w.Region, &w.Status,
			&w.MonthlyRent, &w.Notes, &rentedAt, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan website: %w", err)
		}
		w.ClientID = strPtr(clientID)
		w.RentedAt = timePtr(rentedAt)
		out = append(out, w)
	}
	return out, total, rows.Err()
}

func (r *WebsiteRepo) Create(ctx context.Context, w *domain.Website) (string, error) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO websites
			(id, organization_id, client_id, domain, niche, city, region,
			 status, monthly_rent, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, w.ID, w.OrganizationID, nullStr(w.ClientID), w.Domain, w.Niche,
		w.City, w.Region, w.Status, w.MonthlyRent, w.Notes)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", website.ErrDomainTaken
		}
		return "", fmt.Errorf("create website: %w", err)
	}
	return w.ID, nil
}

func (r *WebsiteRepo) Update(ctx context.Context, orgID, id string, u website.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Niche != nil {
		add("niche", *u.Niche)
	}
	if u.City != nil {
		add("city", *u.City)
	}
	if u.Region != nil {
		add("region", *u.Region)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.MonthlyRent != nil {
		add("monthly_rent", *u.MonthlyRent)
	}
	if u.Notes != nil {
		add("notes", *u.Notes)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf("UPDATE websites SET %s WHERE id = $%d AND organization_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, orgID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update website: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return website.ErrNotFound
	}
	return nil
}

func (r *WebsiteRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM websites
		WHERE id = $1 AND organization_id = $2 AND status <> 'rented'
	`, id, orgID)
	if err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return website.ErrNotFound
	}
	return nil
}

func (r *WebsiteRepo) Rent(ctx context.Context, orgID, id, clientID string, monthlyRent float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE websites
		SET status = 'rented', client_id = $1, monthly_rent = $2,
		    rented_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND organization_id = $4 AND status <> 'rented'
	`, clientID, monthlyRent, id, orgID)
	if err != nil {
		return fmt.Errorf("rent website: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return website.ErrNotFound
	}
	return nil
}

func (r *WebsiteRepo) Unrent(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE websites
		SET status = 'ranking', client_id = NULL, rented_at = NULL, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND status = 'rented'
	`, id, orgID)
	if err != nil {
		return fmt.Errorf("unrent website: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return website.ErrNotFound
	}
	return nil
}

func (r *WebsiteRepo) PortfolioStats(ctx context.Context, orgID string) (*website.PortfolioStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(monthly_rent) FILTER (WHERE status = 'rented'), 0)
		FROM websites
		WHERE organization_id = $1
		GROUP BY status
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("portfolio stats: %w", err)
	}
	defer rows.Close()

	stats := &website.PortfolioStats{ByStatus: make(map[domain.WebsiteStatus]int)}
	for rows.Next() {
		var status domain.WebsiteStatus
		var count int
		var rent float64
		if err := rows.Scan(&status, &count, &rent); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.MonthlyRentRoll += rent
	}
	return stats, rows.Err()
}
