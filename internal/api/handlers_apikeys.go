package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
)

// ListAPIKeys returns the credential pool with usage counters. Secrets
// are never serialized; the domain type masks them.
func (h *Handlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.apiKeys.ListKeys(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"data": keys})
}

// CreateAPIKey adds a credential to the pool.
func (h *Handlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var in seoapi.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	key, err := h.apiKeys.CreateKey(r.Context(), in)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, key)
}

// DisableAPIKey pulls a credential out of rotation.
func (h *Handlers) DisableAPIKey(w http.ResponseWriter, r *http.Request) {
	h.setAPIKeyDisabled(w, r, true)
}

// EnableAPIKey returns a credential to rotation.
func (h *Handlers) EnableAPIKey(w http.ResponseWriter, r *http.Request) {
	h.setAPIKeyDisabled(w, r, false)
}

func (h *Handlers) setAPIKeyDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	err := h.apiKeys.SetDisabled(r.Context(), chi.URLParam(r, "id"), disabled)
	if err != nil {
		if errors.Is(err, seoapi.ErrKeyNotFound) {
			httputil.NotFound(w, "key not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// DeleteAPIKey removes a credential from the pool entirely.
func (h *Handlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	err := h.apiKeys.DeleteKey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, seoapi.ErrKeyNotFound) {
			httputil.NotFound(w, "key not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}
