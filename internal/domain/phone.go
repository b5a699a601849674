package domain

import "time"

// PhoneNumberStatus enumerates provisioning states of a tracking number.
type PhoneNumberStatus string

const (
	PhoneActive   PhoneNumberStatus = "active"
	PhoneReleased PhoneNumberStatus = "released"
)

// PhoneNumber represents a provisioned call-tracking number. Each number
// forwards to the renting client's real line and attributes calls to a site.
type PhoneNumber struct {
	ID             string            `json:"id" db:"id"`
	OrganizationID string            `json:"organization_id" db:"organization_id"`
	WebsiteID      *string           `json:"website_id" db:"website_id"`
	ProviderSID    string            `json:"provider_sid" db:"provider_sid"`
	Number         string            `json:"number" db:"number"` // E.164
	ForwardTo      string            `json:"forward_to" db:"forward_to"`
	Status         PhoneNumberStatus `json:"status" db:"status"`

	// Stats (read-only, populated by queries)
	CallCount int `json:"call_count" db:"call_count"`

	ReleasedAt *time.Time `json:"released_at" db:"released_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CallEvent records a single inbound call delivered by the provider webhook.
type CallEvent struct {
	ID            string    `json:"id" db:"id"`
	PhoneNumberID string    `json:"phone_number_id" db:"phone_number_id"`
	ProviderSID   string    `json:"provider_sid" db:"provider_sid"`
	FromNumber    string    `json:"from_number" db:"from_number"`
	DurationSecs  int       `json:"duration_secs" db:"duration_secs"`
	CallStatus    string    `json:"call_status" db:"call_status"`
	StartedAt     time.Time `json:"started_at" db:"started_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
