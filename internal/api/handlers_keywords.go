package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/cache"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/keywords"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
	"github.com/lumenlocal/rankdesk/internal/service/website"
)

// AddKeyword starts tracking a phrase for a website.
func (h *Handlers) AddKeyword(w http.ResponseWriter, r *http.Request) {
	var in keywords.AddInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	kw, err := h.keywords.Add(r.Context(), auth.OrgID(r.Context()), in)
	if err != nil {
		if errors.Is(err, keywords.ErrDuplicate) {
			httputil.Error(w, http.StatusConflict, "keyword already tracked for this website")
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, kw)
}

// RemoveKeyword stops tracking a phrase and drops its history.
func (h *Handlers) RemoveKeyword(w http.ResponseWriter, r *http.Request) {
	err := h.keywords.Remove(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, keywords.ErrNotFound) {
			httputil.NotFound(w, "keyword not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// SetKeywordActive pauses or resumes tracking without losing history.
func (h *Handlers) SetKeywordActive(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Active bool `json:"active"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	err := h.keywords.SetActive(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"), in.Active)
	if err != nil {
		if errors.Is(err, keywords.ErrNotFound) {
			httputil.NotFound(w, "keyword not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// KeywordHistory returns rank snapshots for one keyword, oldest first.
// The window is given in days and defaults to 30.
func (h *Handlers) KeywordHistory(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days < 1 || days > 365 {
		days = 30
	}

	snaps, err := h.keywords.History(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"), days)
	if err != nil {
		if errors.Is(err, keywords.ErrNotFound) {
			httputil.NotFound(w, "keyword not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"data": snaps})
}

// ListWebsiteKeywords returns all tracked phrases for a website.
func (h *Handlers) ListWebsiteKeywords(w http.ResponseWriter, r *http.Request) {
	kws, err := h.keywords.ListForWebsite(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"data": kws})
}

// WebsiteRankings returns current position and movement per keyword.
// Results are cached briefly since the dashboard polls this endpoint.
func (h *Handlers) WebsiteRankings(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgID(r.Context())
	websiteID := chi.URLParam(r, "id")

	key := cache.MovementsKey(orgID, websiteID)
	if h.cache != nil {
		var cached []domain.RankMovement
		if ok, _ := h.cache.GetJSON(r.Context(), key, &cached); ok {
			httputil.OK(w, map[string]interface{}{"data": cached, "cached": true})
			return
		}
	}

	moves, err := h.keywords.Movements(r.Context(), orgID, websiteID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.SetJSON(r.Context(), key, moves)
	}
	httputil.OK(w, map[string]interface{}{"data": moves})
}

// TrackWebsiteNow runs an on-demand rank check for one website. This
// spends pool units, so it blocks until results land or the check fails.
func (h *Handlers) TrackWebsiteNow(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgID(r.Context())
	websiteID := chi.URLParam(r, "id")

	site, err := h.websites.Get(r.Context(), orgID, websiteID)
	if err != nil {
		if errors.Is(err, website.ErrNotFound) {
			httputil.NotFound(w, "website not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	if err := h.keywords.TrackWebsite(r.Context(), orgID, websiteID, site.Domain); err != nil {
		if errors.Is(err, seoapi.ErrNoKeysAvailable) {
			httputil.Error(w, http.StatusServiceUnavailable, "rank check capacity exhausted, try later")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.Invalidate(r.Context(), cache.MovementsKey(orgID, websiteID))
	}
	httputil.OK(w, map[string]string{"status": "tracked"})
}
