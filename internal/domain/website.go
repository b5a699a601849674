package domain

import "time"

// WebsiteStatus enumerates the lifecycle states of a rank-and-rent site.
type WebsiteStatus string

const (
	WebsiteDraft    WebsiteStatus = "draft"
	WebsiteRanking  WebsiteStatus = "ranking"
	WebsiteRented   WebsiteStatus = "rented"
	WebsiteArchived WebsiteStatus = "archived"
)

// ValidWebsiteStatus reports whether s is a known website status.
func ValidWebsiteStatus(s WebsiteStatus) bool {
	switch s {
	case WebsiteDraft, WebsiteRanking, WebsiteRented, WebsiteArchived:
		return true
	}
	return false
}

// Website represents a single rank-and-rent property.
type Website struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	ClientID       *string       `json:"client_id" db:"client_id"`
	Domain         string        `json:"domain" db:"domain"`
	Niche          string        `json:"niche" db:"niche"`
	City           string        `json:"city" db:"city"`
	Region         string        `json:"region" db:"region"`
	Status         WebsiteStatus `json:"status" db:"status"`
	MonthlyRent    float64       `json:"monthly_rent" db:"monthly_rent"`
	Notes          string        `json:"notes" db:"notes"`

	// Stats (read-only, populated by queries)
	LeadCount    int `json:"lead_count" db:"lead_count"`
	KeywordCount int `json:"keyword_count" db:"keyword_count"`

	RentedAt  *time.Time `json:"rented_at" db:"rented_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsRented returns true if the site is currently producing rent.
func (w *Website) IsRented() bool { return w.Status == WebsiteRented }
