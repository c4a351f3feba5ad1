package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/metrics"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/ratelimit"
	"github.com/and161185/comfy/internal/response"
)

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

func requestID(r *http.Request) string { return middleware.GetReqID(r.Context()) }

func statusOf(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// RequestIDHeader echoes the request id assigned by middleware.RequestID.
func RequestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// SecureHeaders sets the browser hardening headers on every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

// Logging logs request metadata and records request metrics.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			dur := time.Since(start)
			route := routePattern(r)
			status := statusOf(ww)
			metrics.ObserveRequest(r.Method, route, status, dur)

			// metadata only, never payloads
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("dur", dur),
				zap.String("request_id", requestID(r)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

// Recover turns a panic into a 500 envelope.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					response.Fail(w, http.StatusInternalServerError, "Internal Server Error", "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		if t := strings.TrimSpace(v[7:]); t != "" {
			return t
		}
	}
	if c, err := r.Cookie(accessCookie); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate resolves the bearer token (or the token cookie) to a user.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			if !errs.IsAuth(err) {
				s.log.Error("authenticate", zap.Error(err))
			}
			response.ErrorAs(w, "Not authorized to access this route", err, s.opts.Dev)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireRole admits only users holding one of roles.
func (s *Server) RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromCtx(r.Context())
			if !ok {
				response.Error(w, errs.ErrUnauthorized, s.opts.Dev)
				return
			}
			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, fmt.Errorf("%w: Role %s restricted", errs.ErrForbidden, u.Role), s.opts.Dev)
		})
	}
}

// RateLimiter counts requests per key.
type RateLimiter interface {
	Take(ctx context.Context, key string) (ratelimit.Decision, error)
}

// KeyFunc derives the limiter key of a request.
type KeyFunc func(r *http.Request) string

// ByIP keys by client address.
func ByIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}

// ByUser keys by authenticated user, falling back to the client address.
func ByUser(r *http.Request) string {
	if u, ok := UserFromCtx(r.Context()); ok {
		return "user:" + u.ID.String()
	}
	return ByIP(r)
}

// RateLimit rejects requests over the limiter's window with 429. A nil
// limiter disables the check; limiter errors let the request through.
func (s *Server) RateLimit(name string, l RateLimiter, key KeyFunc, detail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Take(r.Context(), key(r))
			if err != nil {
				s.log.Warn("rate limiter unavailable", zap.String("limiter", name), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.Reset).Unix(), 10))
			if !d.Allowed {
				metrics.RateLimited(name)
				secs := int((d.Reset + time.Second - 1) / time.Second)
				h.Set("Retry-After", strconv.Itoa(secs))
				response.Error(w, fmt.Errorf("%w: %s", errs.ErrRateLimited, detail), s.opts.Dev)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var errNoUser = errors.New("no user in context")
