// Package auth handles operator accounts: bcrypt password verification,
// JWT session tokens, and the HTTP middleware that scopes every request to
// the caller's organization.
package auth
