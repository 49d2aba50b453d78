// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the placeholder secret used when JWT_SECRET is unset.
const DefaultJWTSecret = "change_me_in_production"

// DefaultAllowedTypes mirrors the attachment types a stock CMS install accepts.
var DefaultAllowedTypes = []string{
	"gif", "jpg", "jpeg", "png", "tiff", "bmp", "webp", "avif", "heic",
	"mp3", "mp4", "mov", "wmv", "wma", "rmvb", "rm", "avi", "flv", "ogg", "oga", "ogv",
	"txt", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "zip", "rar", "pdf",
}

// Config holds all runtime configuration for the service.
type Config struct {
	Port      string
	AppEnv    string
	JWTSecret string

	// Remote image host (Lsky Pro v2)
	LskyURL        string
	LskyToken      string // sent verbatim as Authorization, e.g. "Bearer 1|abc"; empty = guest
	LskyStrategyID string // honoured only when numeric
	LskyTimeout    time.Duration

	// Local fallback
	UploadRoot   string // filesystem root the relative upload paths hang off
	UploadDir    string // relative upload directory, e.g. "/usr/uploads"
	UploadURL    string // public base for local files; falls back to SiteURL
	SiteURL      string
	AllowedTypes []string
	TmpDir       string
	MaxUploadMB  int64

	// Object storage for the local fallback: "file" (default) or "minio"
	StorageDriver     string
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StorageUseSSL     bool
	StoragePublicBase string

	// Optional remote-object ledger; empty disables it.
	DatabaseURL string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppEnv:    getEnv("APP_ENV", "development"),
		JWTSecret: getEnv("JWT_SECRET", DefaultJWTSecret),

		LskyURL:        getEnv("LSKY_URL", ""),
		LskyToken:      getEnv("LSKY_TOKEN", ""),
		LskyStrategyID: getEnv("LSKY_STRATEGY_ID", ""),
		LskyTimeout:    getEnvDuration("LSKY_TIMEOUT", 30*time.Second),

		UploadRoot:   getEnv("UPLOAD_ROOT", "./data"),
		UploadDir:    getEnv("UPLOAD_DIR", "/usr/uploads"),
		UploadURL:    getEnv("UPLOAD_URL", ""),
		SiteURL:      getEnv("SITE_URL", "http://localhost:8080"),
		AllowedTypes: getEnvList("ALLOWED_TYPES", DefaultAllowedTypes),
		TmpDir:       getEnv("TMP_DIR", os.TempDir()),
		MaxUploadMB:  getEnvInt("MAX_UPLOAD_MB", 32),

		StorageDriver:     getEnv("STORAGE_DRIVER", "file"),
		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "attachments"),
		StorageUseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000/attachments"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PublicUploadBase is the URL local attachment paths are resolved against.
func (c *Config) PublicUploadBase() string {
	if c.StorageDriver == "minio" {
		return c.StoragePublicBase
	}
	if c.UploadURL != "" {
		return c.UploadURL
	}
	return c.SiteURL
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

// getEnvDuration accepts plain integers (seconds) or Go duration strings ("10s", "1m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
