package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/cache"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/service/website"
)

// ListWebsites returns the org's portfolio with filtering and pagination.
func (h *Handlers) ListWebsites(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 50, 200)
	sortBy, desc := ParseSort(r)
	q := r.URL.Query()

	sites, total, err := h.websites.List(r.Context(), auth.OrgID(r.Context()), website.ListFilter{
		Status:   q.Get("status"),
		ClientID: q.Get("client_id"),
		Niche:    q.Get("niche"),
		Search:   q.Get("q"),
		SortBy:   sortBy,
		SortDesc: desc,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(sites, p, total))
}

// GetWebsite returns one website with its counters.
func (h *Handlers) GetWebsite(w http.ResponseWriter, r *http.Request) {
	site, err := h.websites.Get(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, website.ErrNotFound) {
			httputil.NotFound(w, "website not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, site)
}

// CreateWebsite adds a site to the portfolio.
func (h *Handlers) CreateWebsite(w http.ResponseWriter, r *http.Request) {
	var in website.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	site, err := h.websites.Create(r.Context(), auth.OrgID(r.Context()), in)
	if err != nil {
		if errors.Is(err, website.ErrDomainTaken) {
			httputil.Error(w, http.StatusConflict, "domain already in portfolio")
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, site)
}

// UpdateWebsite applies a partial update.
func (h *Handlers) UpdateWebsite(w http.ResponseWriter, r *http.Request) {
	var in website.UpdateFields
	if !httputil.Decode(w, r, &in) {
		return
	}

	orgID := auth.OrgID(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.websites.Update(r.Context(), orgID, id, in); err != nil {
		if errors.Is(err, website.ErrNotFound) {
			httputil.NotFound(w, "website not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	site, err := h.websites.Get(r.Context(), orgID, id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, site)
}

// DeleteWebsite removes a site. Rented sites must be unrented first.
func (h *Handlers) DeleteWebsite(w http.ResponseWriter, r *http.Request) {
	err := h.websites.Delete(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, website.ErrNotFound):
			httputil.NotFound(w, "website not found")
		case errors.Is(err, website.ErrAlreadyRented):
			httputil.Error(w, http.StatusConflict, "unrent the website before deleting it")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.NoContent(w)
}

// RentWebsite places a site with a client.
func (h *Handlers) RentWebsite(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ClientID    string  `json:"client_id"`
		MonthlyRent float64 `json:"monthly_rent"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	orgID := auth.OrgID(r.Context())
	site, err := h.websites.Rent(r.Context(), orgID, chi.URLParam(r, "id"), in.ClientID, in.MonthlyRent)
	if err != nil {
		switch {
		case errors.Is(err, website.ErrNotFound):
			httputil.NotFound(w, "website not found")
		case errors.Is(err, website.ErrAlreadyRented):
			httputil.Error(w, http.StatusConflict, "website is already rented")
		default:
			httputil.BadRequest(w, err.Error())
		}
		return
	}

	h.invalidateDashboard(r, orgID)
	httputil.OK(w, site)
}

// UnrentWebsite returns a rented site to the ranking pool.
func (h *Handlers) UnrentWebsite(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgID(r.Context())
	err := h.websites.Unrent(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, website.ErrNotFound):
			httputil.NotFound(w, "website not found")
		case errors.Is(err, website.ErrNotRented):
			httputil.Error(w, http.StatusConflict, "website is not rented")
		default:
			httputil.InternalError(w, err)
		}
		return
	}

	h.invalidateDashboard(r, orgID)
	httputil.NoContent(w)
}

// PortfolioStats returns status counts and the monthly rent roll.
func (h *Handlers) PortfolioStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.websites.PortfolioStats(r.Context(), auth.OrgID(r.Context()))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

func (h *Handlers) invalidateDashboard(r *http.Request, orgID string) {
	if h.cache == nil {
		return
	}
	_ = h.cache.Invalidate(r.Context(), cache.DashboardKey(orgID))
}
