package telephony

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/domain"
)

// Provider is the slice of the phone provider API the service needs.
type Provider interface {
	SearchAvailable(ctx context.Context, areaCode string, limit int) ([]AvailableNumber, error)
	Purchase(ctx context.Context, number, voiceURL string) (*PurchasedNumber, error)
	ReleaseNumber(ctx context.Context, providerSID string) error
}

// Service provisions tracking numbers and records call events.
type Service struct {
	repo          Repository
	provider      Provider
	webhookSecret string
	voiceURL      string
}

// NewService creates a telephony service. voiceURL is the public webhook
// endpoint new numbers are pointed at.
func NewService(repo Repository, provider Provider, webhookSecret, voiceURL string) *Service {
	return &Service{
		repo:          repo,
		provider:      provider,
		webhookSecret: webhookSecret,
		voiceURL:      voiceURL,
	}
}

// ProvisionInput holds the fields for buying a tracking number.
type ProvisionInput struct {
	AreaCode  string  `json:"area_code"`
	ForwardTo string  `json:"forward_to"`
	WebsiteID *string `json:"website_id"`
}

// Provision searches the provider for a local number, buys the first match,
// and stores it assigned to the given website.
func (s *Service) Provision(ctx context.Context, orgID string, in ProvisionInput) (*domain.PhoneNumber, error) {
	if in.ForwardTo == "" {
		return nil, errors.New("forward_to is required")
	}

	available, err := s.provider.SearchAvailable(ctx, in.AreaCode, 1)
	if err != nil {
		return nil, fmt.Errorf("searching numbers: %w", err)
	}

	purchased, err := s.provider.Purchase(ctx, available[0].Number, s.voiceURL)
	if err != nil {
		return nil, fmt.Errorf("purchasing number: %w", err)
	}

	n := &domain.PhoneNumber{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		WebsiteID:      in.WebsiteID,
		ProviderSID:    purchased.SID,
		Number:         purchased.Number,
		ForwardTo:      in.ForwardTo,
		Status:         domain.PhoneActive,
	}
	if _, err := s.repo.Create(ctx, n); err != nil {
		// The number is bought but not recorded. Release it so it does
		// not keep billing as an orphan.
		if relErr := s.provider.ReleaseNumber(ctx, purchased.SID); relErr != nil {
			log.Error().Err(relErr).Str("provider_sid", purchased.SID).
				Msg("failed to release orphaned number after store error")
		}
		return nil, fmt.Errorf("storing number: %w", err)
	}

	log.Info().Str("number", n.Number).Str("org_id", orgID).Msg("tracking number provisioned")
	return n, nil
}

// Release returns the number to the provider and marks it released locally.
func (s *Service) Release(ctx context.Context, orgID, id string) error {
	n, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if n.Status == domain.PhoneReleased {
		return ErrAlreadyReleased
	}

	if err := s.provider.ReleaseNumber(ctx, n.ProviderSID); err != nil {
		return fmt.Errorf("releasing number with provider: %w", err)
	}
	if err := s.repo.MarkReleased(ctx, orgID, id); err != nil {
		return err
	}

	log.Info().Str("number", n.Number).Msg("tracking number released")
	return nil
}

// Assign points a number at a website, or unassigns it when websiteID is nil.
func (s *Service) Assign(ctx context.Context, orgID, id string, websiteID *string) error {
	return s.repo.AssignToWebsite(ctx, orgID, id, websiteID)
}

// SetForwardTo changes where the number forwards.
func (s *Service) SetForwardTo(ctx context.Context, orgID, id, forwardTo string) error {
	if forwardTo == "" {
		return errors.New("forward_to is required")
	}
	return s.repo.SetForwardTo(ctx, orgID, id, forwardTo)
}

// Get returns one number.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.PhoneNumber, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns numbers matching the filter.
func (s *Service) List(ctx context.Context, orgID string, f ListFilter) ([]domain.PhoneNumber, int, error) {
	return s.repo.List(ctx, orgID, f)
}

// CallEvents returns recent calls for one number.
func (s *Service) CallEvents(ctx context.Context, orgID, id string, limit int) ([]domain.CallEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := s.repo.Get(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.repo.ListCallEvents(ctx, orgID, id, limit)
}

// VerifySignature checks the provider's HMAC over the raw webhook body.
func (s *Service) VerifySignature(body []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// HandleCallEvent records one inbound call from a webhook payload. The
// payload is the provider's form encoding; the called number maps it back to
// our record. Events for unknown numbers are dropped.
func (s *Service) HandleCallEvent(ctx context.Context, form url.Values) error {
	to := form.Get("To")
	if to == "" {
		return errors.New("missing To field")
	}

	n, err := s.repo.GetByNumber(ctx, to)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("to", to).Msg("call event for unknown number, dropping")
			return nil
		}
		return err
	}

	duration, _ := strconv.Atoi(form.Get("CallDuration"))
	startedAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC1123Z, form.Get("Timestamp")); err == nil {
		startedAt = ts.UTC()
	}

	event := &domain.CallEvent{
		ID:            uuid.New().String(),
		PhoneNumberID: n.ID,
		ProviderSID:   form.Get("CallSid"),
		FromNumber:    form.Get("From"),
		DurationSecs:  duration,
		CallStatus:    form.Get("CallStatus"),
		StartedAt:     startedAt,
	}
	if err := s.repo.RecordCallEvent(ctx, event); err != nil {
		return fmt.Errorf("recording call event: %w", err)
	}

	log.Debug().Str("number", n.Number).Str("from", event.FromNumber).Msg("call event recorded")
	return nil
}
