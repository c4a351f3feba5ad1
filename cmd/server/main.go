// Command comfy-server starts the comfy stress-assessment HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/comfy/internal/ai"
	"github.com/and161185/comfy/internal/config"
	"github.com/and161185/comfy/internal/limiter"
	"github.com/and161185/comfy/internal/metrics"
	"github.com/and161185/comfy/internal/migrate"
	"github.com/and161185/comfy/internal/ratelimit"
	"github.com/and161185/comfy/internal/repository/postgres"
	"github.com/and161185/comfy/internal/server/httpapi"
	"github.com/and161185/comfy/internal/service"
	"github.com/and161185/comfy/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}

// main loads configuration, runs migrations, and serves the API until SIGINT/SIGTERM.
func main() {
	configDir := flag.String("config-dir", "", "extra directory to search for config.yaml")
	flag.Parse()

	var dirs []string
	if *configDir != "" {
		dirs = append(dirs, *configDir)
	}
	cfg, err := config.Load(dirs...)
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("load config", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver, err := migrate.Up(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema ready", zap.Int64("version", ver))

	db, err := postgres.New(ctx, cfg.Database.DSN, postgres.Options{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	assessmentRepo := postgres.NewAssessmentRepo(db)

	var lim limiter.Limiter = limiter.NewPG(db.Pool, cfg.Auth.LoginWindow, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginBlockFor)
	if cfg.Development() {
		lim = limiter.Noop{}
	}

	tokens := token.NewService(
		[]byte(cfg.Auth.JWTSecret),
		[]byte(cfg.Auth.JWTRefreshSecret),
		cfg.Auth.AccessTTL,
		cfg.Auth.RefreshTTL,
		userRepo,
	)

	// AI gateway; without a key every call falls back.
	handle := ai.NewHandle(ai.Options{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout,
	})
	if !handle.Available(ctx) {
		logger.Warn("AI model unavailable, serving fallback content")
	}
	gateway := ai.NewGateway(handle, ai.RetryPolicy{
		MaxAttempts: cfg.AI.MaxAttempts,
		Base:        cfg.AI.BackoffBase,
		Jitter:      cfg.AI.BackoffBase / 2,
	}, logger.Named("ai"), ai.WithObserver(metrics.ObserveAI))

	// Services
	authSvc := service.NewAuthService(userRepo, assessmentRepo, tokens, lim, logger.Named("auth"))
	assessmentSvc := service.NewAssessmentService(userRepo, assessmentRepo, gateway, cfg.AI.DailyLimit, logger.Named("assessment"))
	analyticsSvc := service.NewAnalyticsService(userRepo, assessmentRepo)

	opts := httpapi.Options{
		Dev:          cfg.Development(),
		CookieSecure: cfg.Auth.CookieSecure,
		RefreshTTL:   cfg.Auth.RefreshTTL,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}
	if cfg.Redis.Addr != "" && !cfg.Development() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, rate limits fail open", zap.Error(err))
		}
		rl := cfg.RateLimit
		opts.IPLimiter = ratelimit.New(rdb, "ip", rl.IPPerWindow, rl.IPWindow)
		opts.AuthLimiter = ratelimit.New(rdb, "auth", rl.AuthPerWindow, rl.AuthWindow)
		opts.UserLimiter = ratelimit.New(rdb, "user", rl.UserPerWindow, rl.UserWindow)
	} else {
		logger.Info("request rate limiting disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.New(authSvc, assessmentSvc, analyticsSvc, opts, logger.Named("http")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			_ = logger.Sync()
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
