package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/repository/postgres"
)

// ClientStore is the subset of client persistence the API needs.
type ClientStore interface {
	Get(ctx context.Context, orgID, id string) (*domain.Client, error)
	List(ctx context.Context, orgID string, f postgres.ClientListFilter) ([]domain.Client, int, error)
	Create(ctx context.Context, c *domain.Client) (string, error)
	Update(ctx context.Context, orgID, id string, u postgres.ClientUpdateFields) error
	Delete(ctx context.Context, orgID, id string) error
}

// ListClients returns the org's renting clients.
func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 50, 200)
	sortBy, desc := ParseSort(r)
	q := r.URL.Query()

	f := postgres.ClientListFilter{
		Search:   q.Get("q"),
		SortBy:   sortBy,
		SortDesc: desc,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
	if v := q.Get("active"); v != "" {
		active := v == "true"
		f.Active = &active
	}

	clients, total, err := h.clients.List(r.Context(), auth.OrgID(r.Context()), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(clients, p, total))
}

// GetClient returns one client with its rented-website count.
func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Get(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			httputil.NotFound(w, "client not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

// CreateClient registers a new renting client.
func (h *Handlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in struct {
		BusinessName string  `json:"business_name"`
		ContactName  string  `json:"contact_name"`
		Email        string  `json:"email"`
		Phone        string  `json:"phone"`
		MonthlyRate  float64 `json:"monthly_rate"`
		Notes        string  `json:"notes"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}
	if in.BusinessName == "" {
		httputil.BadRequest(w, "business_name is required")
		return
	}

	c := &domain.Client{
		OrganizationID: auth.OrgID(r.Context()),
		BusinessName:   in.BusinessName,
		ContactName:    in.ContactName,
		Email:          in.Email,
		Phone:          in.Phone,
		MonthlyRate:    in.MonthlyRate,
		Active:         true,
		Notes:          in.Notes,
	}
	id, err := h.clients.Create(r.Context(), c)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	c.ID = id
	httputil.Created(w, c)
}

// UpdateClient applies a partial update.
func (h *Handlers) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var in postgres.ClientUpdateFields
	if !httputil.Decode(w, r, &in) {
		return
	}

	orgID := auth.OrgID(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.clients.Update(r.Context(), orgID, id, in); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			httputil.NotFound(w, "client not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	c, err := h.clients.Get(r.Context(), orgID, id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

// DeleteClient removes a client. Clients with rented websites are refused.
func (h *Handlers) DeleteClient(w http.ResponseWriter, r *http.Request) {
	err := h.clients.Delete(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrNotFound):
			httputil.NotFound(w, "client not found")
		case errors.Is(err, postgres.ErrClientHasWebsites):
			httputil.Error(w, http.StatusConflict, "client still has rented websites")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.NoContent(w)
}
