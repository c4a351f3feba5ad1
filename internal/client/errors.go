package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotAuthenticated is returned by calls that need a session when none is held.
var ErrNotAuthenticated = errors.New("not logged in")

// APIError is a non-2xx response decoded from the envelope.
type APIError struct {
	Status  int
	Message string
	Detail  string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Detail != "" && e.Detail != e.Message {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// IsQuotaExceeded reports whether err is the daily AI ceiling (429 on an AI endpoint).
func IsQuotaExceeded(err error) bool { return statusOf(err) == http.StatusTooManyRequests }

func statusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
