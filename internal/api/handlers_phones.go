package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/telephony"
)

// ListPhoneNumbers returns the org's tracking numbers.
func (h *Handlers) ListPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 50, 200)
	q := r.URL.Query()

	numbers, total, err := h.phones.List(r.Context(), auth.OrgID(r.Context()), telephony.ListFilter{
		WebsiteID: q.Get("website_id"),
		Status:    domain.PhoneNumberStatus(q.Get("status")),
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(numbers, p, total))
}

// ProvisionPhoneNumber buys a tracking number from the provider.
func (h *Handlers) ProvisionPhoneNumber(w http.ResponseWriter, r *http.Request) {
	var in telephony.ProvisionInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	n, err := h.phones.Provision(r.Context(), auth.OrgID(r.Context()), in)
	if err != nil {
		if errors.Is(err, telephony.ErrNoNumbersAvailable) {
			httputil.Error(w, http.StatusConflict, "no numbers available for criteria")
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, n)
}

// GetPhoneNumber returns one tracking number.
func (h *Handlers) GetPhoneNumber(w http.ResponseWriter, r *http.Request) {
	n, err := h.phones.Get(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, telephony.ErrNotFound) {
			httputil.NotFound(w, "phone number not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, n)
}

// AssignPhoneNumber points a number at a website. A null website_id
// unassigns it.
func (h *Handlers) AssignPhoneNumber(w http.ResponseWriter, r *http.Request) {
	var in struct {
		WebsiteID *string `json:"website_id"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	err := h.phones.Assign(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"), in.WebsiteID)
	if err != nil {
		if errors.Is(err, telephony.ErrNotFound) {
			httputil.NotFound(w, "phone number not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// SetPhoneForward changes where a number forwards calls.
func (h *Handlers) SetPhoneForward(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ForwardTo string `json:"forward_to"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}
	if in.ForwardTo == "" {
		httputil.BadRequest(w, "forward_to is required")
		return
	}

	err := h.phones.SetForwardTo(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"), in.ForwardTo)
	if err != nil {
		if errors.Is(err, telephony.ErrNotFound) {
			httputil.NotFound(w, "phone number not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ReleasePhoneNumber gives the number back to the provider.
func (h *Handlers) ReleasePhoneNumber(w http.ResponseWriter, r *http.Request) {
	err := h.phones.Release(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, telephony.ErrNotFound):
			httputil.NotFound(w, "phone number not found")
		case errors.Is(err, telephony.ErrAlreadyReleased):
			httputil.Error(w, http.StatusConflict, "phone number already released")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.NoContent(w)
}

// ListCallEvents returns recent calls for one number, newest first.
func (h *Handlers) ListCallEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	events, err := h.phones.CallEvents(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"), limit)
	if err != nil {
		if errors.Is(err, telephony.ErrNotFound) {
			httputil.NotFound(w, "phone number not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"data": events})
}

// CallWebhook receives inbound call notifications from the phone
// provider. The raw body is verified against the shared secret before
// parsing; events for unknown numbers are accepted and dropped so the
// provider does not retry them.
func (h *Handlers) CallWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.BadRequest(w, "unreadable body")
		return
	}

	if err := h.phones.VerifySignature(body, r.Header.Get("X-Provider-Signature")); err != nil {
		log.Warn().Str("remote", r.RemoteAddr).Msg("call webhook signature rejected")
		httputil.Error(w, http.StatusForbidden, "invalid signature")
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		httputil.BadRequest(w, "malformed form body")
		return
	}

	if err := h.phones.HandleCallEvent(r.Context(), form); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "received"})
}
