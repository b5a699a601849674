package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled is returned for a valid login on a deactivated
	// account.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInvalidToken is returned for expired, malformed, or mis-signed
	// tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTooManyAttempts is returned when login rate limiting kicks in.
	ErrTooManyAttempts = errors.New("too many login attempts")
)
