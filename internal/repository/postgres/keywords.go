package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/keywords"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
)

// KeywordRepo implements keywords.Repository against PostgreSQL.
type KeywordRepo struct{ db *sql.DB }

// NewKeywordRepo creates a Postgres-backed keyword repository.
func NewKeywordRepo(db *sql.DB) *KeywordRepo { return &KeywordRepo{db: db} }

const keywordColumns = `id, organization_id, website_id, phrase, location_code,
	language_code, active, created_at`

func scanKeyword(row interface{ Scan(...interface{}) error }) (*domain.Keyword, error) {
	k := &domain.Keyword{}
	err := row.Scan(
		&k.ID, &k.OrganizationID, &k.WebsiteID, &k.Phrase, &k.LocationCode,
		&k.LanguageCode, &k.Active, &k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (r *KeywordRepo) Get(ctx context.Context, orgID, id string) (*domain.Keyword, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+keywordColumns+" FROM keywords WHERE id = $1 AND organization_id = $2",
		id, orgID)
	k, err := scanKeyword(row)
	if err == sql.ErrNoRows {
		return nil, keywords.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get keyword: %w", err)
	}
	return k, nil
}

func (r *KeywordRepo) ListByWebsite(ctx context.Context, orgID, websiteID string) ([]domain.Keyword, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+keywordColumns+` FROM keywords
		WHERE organization_id = $1 AND website_id = $2
		ORDER BY phrase ASC`,
		orgID, websiteID)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	var out []domain.Keyword
	for rows.Next() {
		k, err := scanKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func (r *KeywordRepo) Create(ctx context.Context, k *domain.Keyword) (string, error) {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO keywords
			(id, organization_id, website_id, phrase, location_code, language_code, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, k.ID, k.OrganizationID, k.WebsiteID, k.Phrase, k.LocationCode, k.LanguageCode, k.Active)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", keywords.ErrDuplicate
		}
		return "", fmt.Errorf("create keyword: %w", err)
	}
	return k.ID, nil
}

// Delete removes the keyword; rank_snapshots go with it via ON DELETE CASCADE.
func (r *KeywordRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM keywords WHERE id = $1 AND organization_id = $2", id, orgID)
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return keywords.ErrNotFound
	}
	return nil
}

func (r *KeywordRepo) SetActive(ctx context.Context, orgID, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE keywords SET active = $1 WHERE id = $2 AND organization_id = $3",
		active, id, orgID)
	if err != nil {
		return fmt.Errorf("set keyword active: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return keywords.ErrNotFound
	}
	return nil
}

func (r *KeywordRepo) ListTrackTargets(ctx context.Context) ([]keywords.TrackTarget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT k.organization_id, k.website_id, w.domain, `+prefixedKeywordColumns("k")+`
		FROM keywords k
		JOIN websites w ON w.id = k.website_id
		WHERE k.active AND w.status <> 'archived'
		ORDER BY k.website_id, k.phrase
	`)
	if err != nil {
		return nil, fmt.Errorf("list track targets: %w", err)
	}
	defer rows.Close()

	var out []keywords.TrackTarget
	index := make(map[string]int)
	for rows.Next() {
		var orgID, websiteID, siteDomain string
		var k domain.Keyword
		if err := rows.Scan(
			&orgID, &websiteID, &siteDomain,
			&k.ID, &k.OrganizationID, &k.WebsiteID, &k.Phrase, &k.LocationCode,
			&k.LanguageCode, &k.Active, &k.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan track target: %w", err)
		}
		i, ok := index[websiteID]
		if !ok {
			out = append(out, keywords.TrackTarget{
				OrganizationID: orgID,
				WebsiteID:      websiteID,
				Domain:         siteDomain,
			})
			i = len(out) - 1
			index[websiteID] = i
		}
		out[i].Keywords = append(out[i].Keywords, k)
	}
	return out, rows.Err()
}

func (r *KeywordRepo) SaveSnapshots(ctx context.Context, snaps []domain.RankSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rank_snapshots (id, keyword_id, position, found_url, checked_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range snaps {
		id := s.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, s.KeywordID, s.Position, s.FoundURL, s.CheckedAt); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	return tx.Commit()
}

// Movements ranks each keyword's snapshots newest-first with a window
// function, then joins the top two against the keyword row.
func (r *KeywordRepo) Movements(ctx context.Context, orgID, websiteID string) ([]domain.RankMovement, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH ranked AS (
			SELECT s.keyword_id, s.position, s.checked_at,
			       ROW_NUMBER() OVER (PARTITION BY s.keyword_id ORDER BY s.checked_at DESC) AS rn
			FROM rank_snapshots s
			JOIN keywords k ON k.id = s.keyword_id
			WHERE k.organization_id = $1 AND k.website_id = $2
		),
		best AS (
			SELECT keyword_id, MIN(position) FILTER (WHERE position > 0) AS best_position
			FROM rank_snapshots
			GROUP BY keyword_id
		)
		SELECT k.id, k.phrase,
		       COALESCE(cur.position, 0), COALESCE(prev.position, 0),
		       COALESCE(best.best_position, 0), cur.checked_at
		FROM keywords k
		LEFT JOIN ranked cur ON cur.keyword_id = k.id AND cur.rn = 1
		LEFT JOIN ranked prev ON prev.keyword_id = k.id AND prev.rn = 2
		LEFT JOIN best ON best.keyword_id = k.id
		WHERE k.organization_id = $1 AND k.website_id = $2 AND k.active
		ORDER BY k.phrase ASC
	`, orgID, websiteID)
	if err != nil {
		return nil, fmt.Errorf("keyword movements: %w", err)
	}
	defer rows.Close()

	var out []domain.RankMovement
	for rows.Next() {
		var m domain.RankMovement
		var checkedAt sql.NullTime
		if err := rows.Scan(&m.KeywordID, &m.Phrase, &m.Position, &m.PrevPosition,
			&m.BestPosition, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.CheckedAt = timePtr(checkedAt)
		if checkedAt.Valid {
			m.Change = domain.ComputeChange(m.PrevPosition, m.Position, seoapi.DefaultDepth)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *KeywordRepo) History(ctx context.Context, orgID, keywordID string, since time.Time) ([]domain.RankSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.keyword_id, s.position, COALESCE(s.found_url,''), s.checked_at
		FROM rank_snapshots s
		JOIN keywords k ON k.id = s.keyword_id
		WHERE k.organization_id = $1 AND s.keyword_id = $2 AND s.checked_at >= $3
		ORDER BY s.checked_at ASC
	`, orgID, keywordID, since)
	if err != nil {
		return nil, fmt.Errorf("keyword history: %w", err)
	}
	defer rows.Close()

	var out []domain.RankSnapshot
	for rows.Next() {
		var s domain.RankSnapshot
		if err := rows.Scan(&s.ID, &s.KeywordID, &s.Position, &s.FoundURL, &s.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func prefixedKeywordColumns(alias string) string {
	return alias + ".id, " + alias + ".organization_id, " + alias + ".website_id, " +
		alias + ".phrase, " + alias + ".location_code, " + alias + ".language_code, " +
		alias + ".active, " + alias + ".created_at"
}
