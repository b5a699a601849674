package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/telephony"
)

// PhoneRepo implements telephony.Repository against PostgreSQL.
type PhoneRepo struct{ db *sql.DB }

// NewPhoneRepo creates a Postgres-backed phone number repository.
func NewPhoneRepo(db *sql.DB) *PhoneRepo { return &PhoneRepo{db: db} }

const phoneColumns = `p.id, p.organization_id, p.website_id, p.provider_sid,
	p.number, p.forward_to, p.status,
	(SELECT COUNT(*) FROM call_events e WHERE e.phone_number_id = p.id),
	p.released_at, p.created_at, p.updated_at`

func scanPhone(row interface{ Scan(...interface{}) error }) (*domain.PhoneNumber, error) {
	n := &domain.PhoneNumber{}
	var websiteID sql.NullString
	var releasedAt sql.NullTime
	err := row.Scan(
		&n.ID, &n.OrganizationID, &websiteID, &n.ProviderSID,
		&n.Number, &n.ForwardTo, &n.Status,
		&n.CallCount,
		&releasedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.WebsiteID = strPtr(websiteID)
	n.ReleasedAt = timePtr(releasedAt)
	return n, nil
}

func (r *PhoneRepo) Get(ctx context.Context, orgID, id string) (*domain.PhoneNumber, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+phoneColumns+" FROM phone_numbers p WHERE p.id = $1 AND p.organization_id = $2",
		id, orgID)
	n, err := scanPhone(row)
	if err == sql.ErrNoRows {
		return nil, telephony.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get phone number: %w", err)
	}
	return n, nil
}

// GetByNumber resolves a webhook's called number to our record. Only active
// numbers match; events for released numbers are dropped by the caller.
func (r *PhoneRepo) GetByNumber(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+phoneColumns+" FROM phone_numbers p WHERE p.number = $1 AND p.status = 'active'",
		number)
	n, err := scanPhone(row)
	if err == sql.ErrNoRows {
		return nil, telephony.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get phone number by number: %w", err)
	}
	return n, nil
}

func (r *PhoneRepo) List(ctx context.Context, orgID string, f telephony.ListFilter) ([]domain.PhoneNumber, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE p.organization_id = $1"
	args := []interface{}{orgID}
	idx := 2

	if f.WebsiteID != "" {
		where += fmt.Sprintf(" AND p.website_id = $%d", idx)
		args = append(args, f.WebsiteID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND p.status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM phone_numbers p"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count phone numbers: %w", err)
	}

	q := "SELECT " + phoneColumns + " FROM phone_numbers p" + where +
		" ORDER BY p.created_at DESC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list phone numbers: %w", err)
	}
	defer rows.Close()

	var out []domain.PhoneNumber
	for rows.Next() {
		n, err := scanPhone(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan phone number: %w", err)
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

func (r *PhoneRepo) Create(ctx context.Context, n *domain.PhoneNumber) (string, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phone_numbers
			(id, organization_id, website_id, provider_sid, number, forward_to,
			 status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, n.ID, n.OrganizationID, nullStr(n.WebsiteID), n.ProviderSID, n.Number,
		n.ForwardTo, n.Status)
	if err != nil {
		return "", fmt.Errorf("create phone number: %w", err)
	}
	return n.ID, nil
}

func (r *PhoneRepo) AssignToWebsite(ctx context.Context, orgID, id string, websiteID *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE phone_numbers SET website_id = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3 AND status = 'active'
	`, nullStr(websiteID), id, orgID)
	if err != nil {
		return fmt.Errorf("assign phone number: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return telephony.ErrNotFound
	}
	return nil
}

func (r *PhoneRepo) SetForwardTo(ctx context.Context, orgID, id, forwardTo string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE phone_numbers SET forward_to = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3 AND status = 'active'
	`, forwardTo, id, orgID)
	if err != nil {
		return fmt.Errorf("set forward_to: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return telephony.ErrNotFound
	}
	return nil
}

func (r *PhoneRepo) MarkReleased(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE phone_numbers
		SET status = 'released', released_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND status = 'active'
	`, id, orgID)
	if err != nil {
		return fmt.Errorf("mark phone number released: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return telephony.ErrAlreadyReleased
	}
	return nil
}

// RecordCallEvent inserts one call. ON CONFLICT keeps webhook retries (same
// provider SID) idempotent.
func (r *PhoneRepo) RecordCallEvent(ctx context.Context, e *domain.CallEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_events
			(id, phone_number_id, provider_sid, from_number, duration_secs,
			 call_status, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (provider_sid) DO NOTHING
	`, e.ID, e.PhoneNumberID, e.ProviderSID, e.FromNumber, e.DurationSecs,
		e.CallStatus, e.StartedAt)
	if err != nil {
		return fmt.Errorf("record call event: %w", err)
	}
	return nil
}

func (r *PhoneRepo) ListCallEvents(ctx context.Context, orgID, phoneNumberID string, limit int) ([]domain.CallEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.phone_number_id, e.provider_sid, e.from_number,
		       e.duration_secs, e.call_status, e.started_at, e.created_at
		FROM call_events e
		JOIN phone_numbers p ON p.id = e.phone_number_id
		WHERE p.organization_id = $1 AND e.phone_number_id = $2
		ORDER BY e.started_at DESC
		LIMIT $3
	`, orgID, phoneNumberID, limit)
	if err != nil {
		return nil, fmt.Errorf("list call events: %w", err)
	}
	defer rows.Close()

	var out []domain.CallEvent
	for rows.Next() {
		var e domain.CallEvent
		if err := rows.Scan(&e.ID, &e.PhoneNumberID, &e.ProviderSID, &e.FromNumber,
			&e.DurationSecs, &e.CallStatus, &e.StartedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
