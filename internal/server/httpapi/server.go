// Package httpapi exposes the comfy HTTP JSON API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/comfy/internal/metrics"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/response"
	"github.com/and161185/comfy/internal/service"
)

// Rejection details of the request limiters.
const (
	ipLimitDetail   = "Too many requests from this IP, please try again later."
	authLimitDetail = "Too many auth requests from this IP, please try again after 10 minutes"
	userLimitDetail = "Too many requests from this user, please try again later"
)

// Options configures transport behaviour. Nil limiters are disabled.
type Options struct {
	Dev          bool
	CookieSecure bool
	RefreshTTL   time.Duration
	CORSOrigins  []string

	IPLimiter   RateLimiter
	AuthLimiter RateLimiter
	UserLimiter RateLimiter
}

// Server wires services into HTTP handlers.
type Server struct {
	auth        service.AuthService
	assessments service.AssessmentService
	analytics   service.AnalyticsService
	opts        Options
	log         *zap.Logger
	validate    *validator.Validate
	now         func() time.Time
}

// New constructs the API server with injected services.
func New(
	auth service.AuthService,
	assessments service.AssessmentService,
	analytics service.AnalyticsService,
	opts Options,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Server{
		auth:        auth,
		assessments: assessments,
		analytics:   analytics,
		opts:        opts,
		log:         log,
		validate:    newValidator(),
		now:         time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestIDHeader)
	r.Use(SecureHeaders)
	r.Use(Logging(s.log))
	r.Use(Recover(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Fail(w, http.StatusNotFound, "Route not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Fail(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// The per-IP limit covers everything but the metrics scrape.
	r.Group(func(r chi.Router) {
		r.Use(s.RateLimit("ip", s.opts.IPLimiter, ByIP, ipLimitDetail))
		r.Get("/ping", s.ping)
		r.Route("/api", s.apiRoutes)
	})

	return r
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(s.RateLimit("auth", s.opts.AuthLimiter, ByIP, authLimitDetail)).Post("/register", s.register)
		r.With(s.RateLimit("auth", s.opts.AuthLimiter, ByIP, authLimitDetail)).Post("/login", s.login)
		r.Post("/refresh", s.refresh)
		r.With(s.Authenticate).Get("/logout", s.logout)
		r.With(s.Authenticate).Get("/me", s.me)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(s.RateLimit("user", s.opts.UserLimiter, ByUser, userLimitDetail))
			r.Post("/generate-questions", s.generateQuestions)
			r.Post("/analyze-stress", s.analyzeStress)
		})
		r.Get("/history", s.history)
		r.Get("/trends", s.trends)
		r.Delete("/user/delete-account", s.deleteAccount)
		r.With(s.RequireRole(model.RoleAdmin)).Get("/admin/analytics", s.adminAnalytics)
	})
}
