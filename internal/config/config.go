// Package config provides configuration loading for the comfy API server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all configuration for the application.
type Config struct {
	Env       string          `mapstructure:"env"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	AI        AIConfig        `mapstructure:"ai"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds Redis configuration. An empty Addr disables request rate limiting.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds token, cookie and login lockout settings.
type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTRefreshSecret string        `mapstructure:"jwt_refresh_secret"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	CookieSecure     bool          `mapstructure:"cookie_secure"`
	LoginWindow      time.Duration `mapstructure:"login_window"`
	LoginMaxFailures int           `mapstructure:"login_max_failures"`
	LoginBlockFor    time.Duration `mapstructure:"login_block_for"`
}

// AIConfig holds generative model settings. An empty APIKey leaves the model unavailable.
type AIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	DailyLimit  int           `mapstructure:"daily_limit"`
}

// RateLimitConfig holds the request rate limit windows.
type RateLimitConfig struct {
	IPPerWindow   int           `mapstructure:"ip_per_window"`
	IPWindow      time.Duration `mapstructure:"ip_window"`
	AuthPerWindow int           `mapstructure:"auth_per_window"`
	AuthWindow    time.Duration `mapstructure:"auth_window"`
	UserPerWindow int           `mapstructure:"user_per_window"`
	UserWindow    time.Duration `mapstructure:"user_window"`
}

// Development reports whether the server runs in development mode.
func (c *Config) Development() bool { return c.Env == EnvDevelopment }

// Load reads configuration from an optional config.yaml and COMFY_* environment variables.
// Extra search directories are consulted before the defaults.
func Load(dirs ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/comfy")

	v.SetEnvPrefix("COMFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Keys without defaults are invisible to Unmarshal unless bound.
	for _, key := range []string{
		"database.dsn",
		"auth.jwt_secret",
		"auth.jwt_refresh_secret",
		"ai.api_key",
		"ai.base_url",
		"redis.password",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("config: unknown env %q", c.Env)
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTRefreshSecret == "" {
		return errors.New("config: auth.jwt_secret and auth.jwt_refresh_secret are required")
	}
	if c.Auth.JWTSecret == c.Auth.JWTRefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.AI.MaxAttempts < 1 {
		return errors.New("config: ai.max_attempts must be at least 1")
	}
	if c.AI.DailyLimit < 1 {
		return errors.New("config: ai.daily_limit must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvProduction)
	v.SetDefault("log.level", "info")

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_idle_time", "5m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.cookie_secure", true)
	v.SetDefault("auth.login_window", "15m")
	v.SetDefault("auth.login_max_failures", 5)
	v.SetDefault("auth.login_block_for", "15m")

	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.backoff_base", "2s")
	v.SetDefault("ai.daily_limit", 100)

	v.SetDefault("ratelimit.ip_per_window", 100)
	v.SetDefault("ratelimit.ip_window", "15m")
	v.SetDefault("ratelimit.auth_per_window", 100)
	v.SetDefault("ratelimit.auth_window", "10m")
	v.SetDefault("ratelimit.user_per_window", 200)
	v.SetDefault("ratelimit.user_window", "15m")
}
