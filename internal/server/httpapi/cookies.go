package httpapi

import (
	"net/http"
	"time"
)

const (
	refreshCookie = "refreshToken"
	accessCookie  = "token"
	clearedValue  = "none"
	clearAfter    = 10 * time.Second
)

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearRefreshCookie overwrites the refresh cookie with a short-lived placeholder.
func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	s.setRefreshCookie(w, clearedValue, s.now().Add(clearAfter))
}
