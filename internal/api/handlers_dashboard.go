package api

import (
	"net/http"
	"time"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/cache"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/service/website"
)

// dashboardPayload is the aggregated landing-page view.
type dashboardPayload struct {
	Portfolio *website.PortfolioStats   `json:"portfolio"`
	Pipeline  map[domain.LeadStatus]int `json:"pipeline"`
	TasksDue  []domain.Task             `json:"tasks_due"`
	Generated time.Time                 `json:"generated_at"`
}

// Dashboard aggregates portfolio, lead pipeline, and due tasks into one
// response. The payload is cached per org; rent and unrent invalidate it.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgID(r.Context())
	key := cache.DashboardKey(orgID)

	if h.cache != nil {
		var cached dashboardPayload
		if ok, _ := h.cache.GetJSON(r.Context(), key, &cached); ok {
			httputil.OK(w, cached)
			return
		}
	}

	stats, err := h.websites.PortfolioStats(r.Context(), orgID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	pipeline, err := h.leads.PipelineCounts(r.Context(), orgID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	due, err := h.tasks.DueSoon(r.Context(), orgID, 7*24*time.Hour)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	payload := dashboardPayload{
		Portfolio: stats,
		Pipeline:  pipeline,
		TasksDue:  due,
		Generated: time.Now().UTC(),
	}
	if h.cache != nil {
		_ = h.cache.SetJSON(r.Context(), key, payload)
	}
	httputil.OK(w, payload)
}
