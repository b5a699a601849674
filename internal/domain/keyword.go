package domain

import "time"

// Keyword represents a tracked search term for a website.
type Keyword struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	WebsiteID      string `json:"website_id" db:"website_id"`
	Phrase         string `json:"phrase" db:"phrase"`
	LocationCode   int    `json:"location_code" db:"location_code"`
	LanguageCode   string `json:"language_code" db:"language_code"`
	Active         bool   `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RankSnapshot is one observed SERP position for a keyword at a point in time.
// Position 0 means the site was not found in the checked depth.
type RankSnapshot struct {
	ID        string    `json:"id" db:"id"`
	KeywordID string    `json:"keyword_id" db:"keyword_id"`
	Position  int       `json:"position" db:"position"`
	FoundURL  string    `json:"found_url" db:"found_url"`
	CheckedAt time.Time `json:"checked_at" db:"checked_at"`
}

// RankMovement is the diff between the two most recent snapshots of a
// keyword, as served to the dashboard.
type RankMovement struct {
	KeywordID    string     `json:"keyword_id"`
	Phrase       string     `json:"phrase"`
	Position     int        `json:"position"`      // latest, 0 = not found
	PrevPosition int        `json:"prev_position"` // previous, 0 = not found
	BestPosition int        `json:"best_position"`
	Change       int        `json:"change"` // positive = moved up
	CheckedAt    *time.Time `json:"checked_at"`
}

// ComputeChange returns the rank delta between two positions where 0 means
// "not found". Moving from unranked to ranked is a positive change from a
// sentinel depth of depth+1, so entering at position 8 with depth 100
// yields +93.
func ComputeChange(prev, current, depth int) int {
	if prev == 0 && current == 0 {
		return 0
	}
	if prev == 0 {
		prev = depth + 1
	}
	if current == 0 {
		current = depth + 1
	}
	return prev - current
}
