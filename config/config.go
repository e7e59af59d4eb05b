// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	JWT       JWTConfig
	Session   SessionConfig
	Storage   R2Config
	Google    GoogleOAuthConfig
	Upload    UploadConfig
	Feed      FeedConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// SessionConfig configures the browser cookie that carries tokens for pages
// and the live view.
type SessionConfig struct {
	CookieName   string
	CookieSecret string
	Secure       bool
}

// R2Config points at the S3-compatible bucket holding uploads. The service
// key pair is only read by the storage setup command.
type R2Config struct {
	AccountID              string
	Endpoint               string
	AccessKeyID            string
	SecretAccessKey        string
	ServiceAccessKeyID     string
	ServiceSecretAccessKey string
	BucketName             string
	PublicURL              string
	Region                 string
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type UploadConfig struct {
	MaxBytes int64
}

type FeedConfig struct {
	PageSize int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	godotenv.Load()

	cfg := &Config{}
	var err error

	// Database configuration
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Port, err = intEnv("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.Database.User, err = requireEnv("DB_USER"); err != nil {
		return nil, err
	}
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	if cfg.Database.DBName, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}
	cfg.Database.SSLMode = envOr("DB_SSLMODE", "disable")

	// Server configuration
	if cfg.Server.Port, err = intEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Server.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.Logging.Level = envOr("LOG_LEVEL", "info")
	cfg.CORS.AllowedOrigins = listEnv("CORS_ALLOWED_ORIGINS", []string{"*"})

	// JWT configuration
	if cfg.JWT.Secret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.JWT.AccessTokenExpiry, err = durationEnv("JWT_ACCESS_TOKEN_EXPIRY", time.Hour); err != nil {
		return nil, err
	}
	// 30 days
	if cfg.JWT.RefreshTokenExpiry, err = durationEnv("JWT_REFRESH_TOKEN_EXPIRY", 720*time.Hour); err != nil {
		return nil, err
	}

	cfg.Session.CookieName = envOr("SESSION_COOKIE_NAME", "gallery_session")
	cfg.Session.CookieSecret = envOr("SESSION_COOKIE_SECRET", cfg.JWT.Secret)
	cfg.Session.Secure = os.Getenv("SESSION_COOKIE_SECURE") == "true"

	// Storage configuration
	cfg.Storage = R2Config{
		AccountID:              os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		Endpoint:               os.Getenv("STORAGE_ENDPOINT"),
		AccessKeyID:            os.Getenv("CLOUDFLARE_ACCESS_KEY_ID"),
		SecretAccessKey:        os.Getenv("CLOUDFLARE_SECRET_ACCESS_KEY"),
		ServiceAccessKeyID:     os.Getenv("CLOUDFLARE_SERVICE_ACCESS_KEY_ID"),
		ServiceSecretAccessKey: os.Getenv("CLOUDFLARE_SERVICE_SECRET_ACCESS_KEY"),
		BucketName:             envOr("CLOUDFLARE_BUCKET_NAME", "media"),
		PublicURL:              strings.TrimRight(os.Getenv("CLOUDFLARE_PUBLIC_URL"), "/"),
		Region:                 envOr("CLOUDFLARE_REGION", "auto"),
	}
	if cfg.Storage.Endpoint == "" && cfg.Storage.AccountID != "" {
		cfg.Storage.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.Storage.AccountID)
	}

	cfg.Google = GoogleOAuthConfig{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	maxBytes, err := intEnv("UPLOAD_MAX_BYTES", 5*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.Upload.MaxBytes = int64(maxBytes)

	if cfg.Feed.PageSize, err = intEnv("FEED_PAGE_SIZE", 15); err != nil {
		return nil, err
	}
	if cfg.Feed.PageSize < 1 {
		return nil, fmt.Errorf("invalid FEED_PAGE_SIZE: must be positive")
	}

	if cfg.RateLimit.Requests, err = intEnv("RATE_LIMIT_REQUESTS", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Window, err = durationEnv("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns the postgres connection string, usable by both gorm and pgx.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// listEnv parses a comma-separated list, falling back to def when nothing
// usable is set.
func listEnv(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
