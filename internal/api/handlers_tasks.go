package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/service/task"
)

// ListTasks returns the org's tasks with filtering and pagination.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 50, 200)
	sortBy, desc := ParseSort(r)
	q := r.URL.Query()

	tasks, total, err := h.tasks.List(r.Context(), auth.OrgID(r.Context()), task.ListFilter{
		WebsiteID:  q.Get("website_id"),
		AssigneeID: q.Get("assignee_id"),
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		Search:     q.Get("q"),
		SortBy:     sortBy,
		SortDesc:   desc,
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(tasks, p, total))
}

// CreateTask adds a work item.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in task.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	t, err := h.tasks.Create(r.Context(), auth.OrgID(r.Context()), in)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, t)
}

// GetTask returns one task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Get(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			httputil.NotFound(w, "task not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, t)
}

// UpdateTask applies a partial update.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var in task.UpdateFields
	if !httputil.Decode(w, r, &in) {
		return
	}

	orgID := auth.OrgID(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.tasks.Update(r.Context(), orgID, id, in); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			httputil.NotFound(w, "task not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	t, err := h.tasks.Get(r.Context(), orgID, id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, t)
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	err := h.tasks.Delete(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			httputil.NotFound(w, "task not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// TransitionTask moves a task to a new status.
func (h *Handlers) TransitionTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status domain.TaskStatus `json:"status"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	t, err := h.tasks.Transition(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"), in.Status)
	if err != nil {
		switch {
		case errors.Is(err, task.ErrNotFound):
			httputil.NotFound(w, "task not found")
		case errors.Is(err, task.ErrAlreadyClosed):
			httputil.Error(w, http.StatusConflict, err.Error())
		default:
			httputil.BadRequest(w, err.Error())
		}
		return
	}
	httputil.OK(w, t)
}

// CompleteTask marks a task done and stamps completed_at.
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Complete(r.Context(), auth.OrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, task.ErrNotFound):
			httputil.NotFound(w, "task not found")
		case errors.Is(err, task.ErrAlreadyClosed):
			httputil.Error(w, http.StatusConflict, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, t)
}

// DueTasks returns open tasks due within the requested window. The
// window is given in hours and defaults to 7 days.
func (h *Handlers) DueTasks(w http.ResponseWriter, r *http.Request) {
	window := 7 * 24 * time.Hour
	if v := r.URL.Query().Get("hours"); v != "" {
		if d, err := time.ParseDuration(v + "h"); err == nil && d > 0 {
			window = d
		}
	}

	tasks, err := h.tasks.DueSoon(r.Context(), auth.OrgID(r.Context()), window)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"data": tasks})
}
