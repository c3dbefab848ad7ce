// Package config provides environment variable loading for the quotes app.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server and the CLI.
type Config struct {
	// Server
	Addr           string
	MaxUploadMB    int
	AllowedOrigins []string

	// Storage
	DataDir   string
	UploadDir string

	// Document images
	LogoPath      string
	BrandLogoPath string

	// Login
	SessionSecret     string
	AdminUsername     string
	AdminPasswordHash string
	AdminPassword     string

	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string

	// Email
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Optional
	IndexReconcileSchedule string
	LogLevel               string
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first (for local development).
func Load() *Config {
	// Load .env file if present (ignore errors - file may not exist in production)
	_ = godotenv.Load()

	return &Config{
		Addr:                   getEnv("ADDR", ":8080"),
		MaxUploadMB:            getEnvInt("MAX_UPLOAD_MB", 10),
		AllowedOrigins:         getEnvList("CORS_ALLOWED_ORIGINS"),
		DataDir:                getEnv("DATA_DIR", "data"),
		UploadDir:              getEnv("UPLOAD_DIR", "static/uploads"),
		LogoPath:               getEnv("LOGO_PATH", "static/images/logo.png"),
		BrandLogoPath:          getEnv("BRAND_LOGO_PATH", "static/images/logo_brand.png"),
		SessionSecret:          getEnv("SESSION_SECRET", ""),
		AdminUsername:          getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:      getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminPassword:          getEnv("ADMIN_PASSWORD", ""),
		R2AccountID:            getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:          getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:      getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:               getEnv("R2_BUCKET", "offerte"),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnvInt("SMTP_PORT", 587),
		SMTPUser:               getEnv("SMTP_USER", ""),
		SMTPPass:               getEnv("SMTP_PASS", ""),
		SMTPFrom:               getEnv("SMTP_FROM", ""),
		IndexReconcileSchedule: getEnv("INDEX_RECONCILE_SCHEDULE", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}
}

// ArchiveEnabled reports whether R2 credentials are present.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
