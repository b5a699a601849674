package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
)

// APIKeyRepo implements seoapi.KeyRepository against PostgreSQL.
type APIKeyRepo struct{ db *sql.DB }

// NewAPIKeyRepo creates a Postgres-backed API key repository.
func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo { return &APIKeyRepo{db: db} }

const apiKeyColumns = `id, COALESCE(label,''), login, secret, daily_limit,
	units_used, disabled, last_used_at, reset_at, created_at`

func scanAPIKey(row interface{ Scan(...interface{}) error }) (*domain.SEOAPIKey, error) {
	k := &domain.SEOAPIKey{}
	var lastUsed sql.NullTime
	err := row.Scan(
		&k.ID, &k.Label, &k.Login, &k.Secret, &k.DailyLimit,
		&k.UnitsUsed, &k.Disabled, &lastUsed, &k.ResetAt, &k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	k.LastUsedAt = timePtr(lastUsed)
	return k, nil
}

func (r *APIKeyRepo) Get(ctx context.Context, id string) (*domain.SEOAPIKey, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+apiKeyColumns+" FROM seo_api_keys WHERE id = $1", id)
	k, err := scanAPIKey(row)
	if err == sql.ErrNoRows {
		return nil, seoapi.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

func (r *APIKeyRepo) List(ctx context.Context) ([]domain.SEOAPIKey, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+apiKeyColumns+" FROM seo_api_keys ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []domain.SEOAPIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func (r *APIKeyRepo) Create(ctx context.Context, k *domain.SEOAPIKey) (string, error) {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO seo_api_keys
			(id, label, login, secret, daily_limit, units_used, disabled, reset_at, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, false, $6, NOW())
	`, k.ID, k.Label, k.Login, k.Secret, k.DailyLimit, k.ResetAt)
	if err != nil {
		return "", fmt.Errorf("create api key: %w", err)
	}
	return k.ID, nil
}

func (r *APIKeyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM seo_api_keys WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return seoapi.ErrKeyNotFound
	}
	return nil
}

// ClaimAvailable reserves units on one key in a single statement. SKIP LOCKED
// keeps concurrent claimers from queueing on the same row, and the usage
// check inside the subquery makes over-claiming impossible.
func (r *APIKeyRepo) ClaimAvailable(ctx context.Context, units int64) (*domain.SEOAPIKey, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE seo_api_keys
		SET units_used = units_used + $1, last_used_at = NOW()
		WHERE id = (
			SELECT id FROM seo_api_keys
			WHERE NOT disabled AND units_used + $1 <= daily_limit
			ORDER BY units_used ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+apiKeyColumns, units)
	k, err := scanAPIKey(row)
	if err == sql.ErrNoRows {
		return nil, seoapi.ErrNoKeysAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("claim api key: %w", err)
	}
	return k, nil
}

func (r *APIKeyRepo) RefundUnits(ctx context.Context, id string, units int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE seo_api_keys
		SET units_used = GREATEST(units_used - $1, 0)
		WHERE id = $2
	`, units, id)
	if err != nil {
		return fmt.Errorf("refund api key units: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return seoapi.ErrKeyNotFound
	}
	return nil
}

func (r *APIKeyRepo) SetDisabled(ctx context.Context, id string, disabled bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE seo_api_keys SET disabled = $1 WHERE id = $2", disabled, id)
	if err != nil {
		return fmt.Errorf("set api key disabled: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return seoapi.ErrKeyNotFound
	}
	return nil
}

func (r *APIKeyRepo) ResetDailyUsage(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE seo_api_keys
		SET units_used = 0,
		    reset_at = date_trunc('day', $1::timestamptz) + interval '1 day'
		WHERE reset_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("reset api key usage: %w", err)
	}
	return res.RowsAffected()
}
