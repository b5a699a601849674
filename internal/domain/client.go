package domain

import "time"

// Client represents a renter: the business that pays for leads from a site.
type Client struct {
	ID             string  `json:"id" db:"id"`
	OrganizationID string  `json:"organization_id" db:"organization_id"`
	BusinessName   string  `json:"business_name" db:"business_name"`
	ContactName    string  `json:"contact_name" db:"contact_name"`
	Email          string  `json:"email" db:"email"`
	Phone          string  `json:"phone" db:"phone"`
	MonthlyRate    float64 `json:"monthly_rate" db:"monthly_rate"`
	Active         bool    `json:"active" db:"active"`
	Notes          string  `json:"notes" db:"notes"`

	// Stats (read-only, populated by queries)
	WebsiteCount int `json:"website_count" db:"website_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
