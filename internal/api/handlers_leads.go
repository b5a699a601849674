package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/metrics"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/service/lead"
	"github.com/lumenlocal/rankdesk/internal/service/website"
)

// CaptureLead is the public form target embedded on rented sites. The
// website ID in the path determines the organization; callers are
// anonymous.
func (h *Handlers) CaptureLead(w http.ResponseWriter, r *http.Request) {
	websiteID := chi.URLParam(r, "websiteID")

	var in lead.CaptureInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	in.WebsiteID = websiteID
	if in.Source == "" {
		in.Source = domain.LeadSourceForm
	}

	site, err := h.websites.Lookup(r.Context(), websiteID)
	if err != nil {
		if errors.Is(err, website.ErrNotFound) {
			httputil.NotFound(w, "unknown website")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	l, err := h.leads.Capture(r.Context(), site.OrganizationID, in)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	metrics.LeadsCaptured.WithLabelValues(string(l.Source)).Inc()
	httputil.Created(w, map[string]string{"id": l.ID})
}

// ListLeads returns the org's leads with filtering and pagination.
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 50, 200)
	sortBy, desc := ParseSort(r)
	q := r.URL.Query()

	leads, total, err := h.leads.List(r.Context(), auth.OrgID(r.Context()), lead.ListFilter{
		WebsiteID: q.Get("website_id"),
		ClientID:  q.Get("client_id"),
		Status:    q.Get("status"),
		Source:    q.Get("source"),
		Search:    q.Get("q"),
		SortBy:    sortBy,
		SortDesc:  desc,
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(leads, p, total))
}

// GetLead returns one lead.
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	l, err := h.leads.Get(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			httputil.NotFound(w, "lead not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, l)
}

// UpdateLead applies a partial update.
func (h *Handlers) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var in lead.UpdateFields
	if !httputil.Decode(w, r, &in) {
		return
	}

	orgID := auth.OrgID(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.leads.Update(r.Context(), orgID, id, in); err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			httputil.NotFound(w, "lead not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	l, err := h.leads.Get(r.Context(), orgID, id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, l)
}

// DeleteLead removes a lead.
func (h *Handlers) DeleteLead(w http.ResponseWriter, r *http.Request) {
	err := h.leads.Delete(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			httputil.NotFound(w, "lead not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// TransitionLead moves a lead through the pipeline.
func (h *Handlers) TransitionLead(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status domain.LeadStatus `json:"status"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	l, err := h.leads.Transition(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"), in.Status)
	if err != nil {
		switch {
		case errors.Is(err, lead.ErrNotFound):
			httputil.NotFound(w, "lead not found")
		case errors.Is(err, lead.ErrInvalidTransition):
			httputil.Error(w, http.StatusConflict, err.Error())
		default:
			httputil.BadRequest(w, err.Error())
		}
		return
	}
	httputil.OK(w, l)
}

// LeadPipeline returns lead counts per pipeline stage.
func (h *Handlers) LeadPipeline(w http.ResponseWriter, r *http.Request) {
	counts, err := h.leads.PipelineCounts(r.Context(), auth.OrgID(r.Context()))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, counts)
}
