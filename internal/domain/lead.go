package domain

import "time"

// LeadStatus enumerates the pipeline states of a lead.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadConverted LeadStatus = "converted"
	LeadRejected  LeadStatus = "rejected"
)

// LeadSource enumerates how a lead arrived.
type LeadSource string

const (
	LeadSourceForm  LeadSource = "form"
	LeadSourceCall  LeadSource = "call"
	LeadSourceEmail LeadSource = "email"
)

// ValidLeadStatus reports whether s is a known lead status.
func ValidLeadStatus(s LeadStatus) bool {
	switch s {
	case LeadNew, LeadContacted, LeadQualified, LeadConverted, LeadRejected:
		return true
	}
	return false
}

// leadTransitions defines the allowed pipeline moves. Terminal states have
// no outgoing edges.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadNew:       {LeadContacted, LeadQualified, LeadRejected},
	LeadContacted: {LeadQualified, LeadConverted, LeadRejected},
	LeadQualified: {LeadConverted, LeadRejected},
}

// CanTransitionLead reports whether a lead may move from one status to another.
func CanTransitionLead(from, to LeadStatus) bool {
	for _, next := range leadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lead represents an inbound prospect captured by a website.
type Lead struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	WebsiteID      string     `json:"website_id" db:"website_id"`
	ClientID       *string    `json:"client_id" db:"client_id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Phone          string     `json:"phone" db:"phone"`
	Message        string     `json:"message" db:"message"`
	Source         LeadSource `json:"source" db:"source"`
	Status         LeadStatus `json:"status" db:"status"`
	EstimatedValue float64    `json:"estimated_value" db:"estimated_value"`

	ContactedAt *time.Time `json:"contacted_at" db:"contacted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the lead has left the active pipeline.
func (l *Lead) IsTerminal() bool {
	return l.Status == LeadConverted || l.Status == LeadRejected
}
