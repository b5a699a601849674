package domain

import "time"

// UserRole enumerates access levels within an organization.
type UserRole string

const (
	RoleOwner  UserRole = "owner"
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// ValidUserRole reports whether r is a known role.
func ValidUserRole(r UserRole) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// User is an operator account. PasswordHash is a bcrypt digest and is never
// serialized.
type User struct {
	ID             string   `json:"id" db:"id"`
	OrganizationID string   `json:"organization_id" db:"organization_id"`
	Email          string   `json:"email" db:"email"`
	Name           string   `json:"name" db:"name"`
	PasswordHash   string   `json:"-" db:"password_hash"`
	Role           UserRole `json:"role" db:"role"`
	Active         bool     `json:"active" db:"active"`

	LastLoginAt *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Organization is a tenant. Every other aggregate is scoped to one.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
