package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
)

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Login exchanges credentials for a session token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	res, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTooManyAttempts):
			httputil.Error(w, http.StatusTooManyRequests, "too many login attempts")
		case errors.Is(err, auth.ErrAccountDisabled):
			httputil.Error(w, http.StatusForbidden, "account disabled")
		case errors.Is(err, auth.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, res)
}

// Register bootstraps a new organization with its owner account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, res)
}

// Me returns the authenticated caller's identity.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"user_id":         auth.UserID(r.Context()),
		"organization_id": auth.OrgID(r.Context()),
		"role":            auth.Role(r.Context()),
	})
}
