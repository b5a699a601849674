package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/pkg/httputil"
)

type contextKey string

const (
	ctxUserID contextKey = "auth.user_id"
	ctxOrgID  contextKey = "auth.org_id"
	ctxRole   contextKey = "auth.role"
)

// UserID returns the authenticated user's ID from the request context.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

// OrgID returns the authenticated user's organization from the request
// context. Handlers scope every query with this, never with IDs from the
// request body.
func OrgID(ctx context.Context) string {
	v, _ := ctx.Value(ctxOrgID).(string)
	return v
}

// Role returns the authenticated user's role from the request context.
func Role(ctx context.Context) domain.UserRole {
	v, _ := ctx.Value(ctxRole).(domain.UserRole)
	return v
}

// Middleware rejects requests without a valid Bearer token and stashes the
// caller's identity in the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httputil.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, ctxUserID, claims.Subject)
		ctx = context.WithValue(ctx, ctxOrgID, claims.OrganizationID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers below the given role. Owners pass everything;
// admins pass admin and member checks.
func RequireRole(role domain.UserRole) func(http.Handler) http.Handler {
	rank := map[domain.UserRole]int{
		domain.RoleMember: 1,
		domain.RoleAdmin:  2,
		domain.RoleOwner:  3,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rank[Role(r.Context())] < rank[role] {
				httputil.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
