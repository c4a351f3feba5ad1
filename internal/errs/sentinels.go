// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/transport layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates failed authentication (missing token, bad credentials).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken indicates a token with a bad signature, wrong kind or past its expiry.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnknownUser indicates a valid token whose subject no longer exists.
	ErrUnknownUser = errors.New("user no longer exists")

	// ErrForbidden indicates an authenticated user lacking the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates too many requests (per IP, per user, or login lockout).
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExceeded indicates the daily AI request ceiling has been reached.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrUpstreamUnavailable indicates the AI provider is down or not configured.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)

// IsAuth reports whether err belongs to the authentication family (401).
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUnknownUser)
}
