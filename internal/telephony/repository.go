package telephony

import (
	"context"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// ListFilter controls filtering for phone number lists.
type ListFilter struct {
	WebsiteID string
	Status    domain.PhoneNumberStatus
	Limit     int
	Offset    int
}

// Repository provides data access for phone numbers and call events.
type Repository interface {
	Get(ctx context.Context, orgID, id string) (*domain.PhoneNumber, error)
	GetByNumber(ctx context.Context, number string) (*domain.PhoneNumber, error)
	List(ctx context.Context, orgID string, f ListFilter) ([]domain.PhoneNumber, int, error)
	Create(ctx context.Context, n *domain.PhoneNumber) (string, error)

	// AssignToWebsite points an active number at a website. A nil
	// websiteID unassigns it.
	AssignToWebsite(ctx context.Context, orgID, id string, websiteID *string) error

	// SetForwardTo changes where the number forwards.
	SetForwardTo(ctx context.Context, orgID, id, forwardTo string) error

	// MarkReleased flips an active number to released. Returns
	// ErrAlreadyReleased if it was not active.
	MarkReleased(ctx context.Context, orgID, id string) error

	// RecordCallEvent stores one inbound call. Duplicate provider SIDs
	// are ignored so webhook retries stay idempotent.
	RecordCallEvent(ctx context.Context, e *domain.CallEvent) error

	// ListCallEvents returns calls for one number, newest first.
	ListCallEvents(ctx context.Context, orgID, phoneNumberID string, limit int) ([]domain.CallEvent, error)
}
