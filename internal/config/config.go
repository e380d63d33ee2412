package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	defaultListenAddr     = ":8080"
	defaultDBDriver       = "sqlite"
	defaultDBDSN          = "wayfarer.db"
	defaultLogFormat      = FormatJSON
	defaultActivityBuffer = 100

	envListenAddr     = "WAYFARER_LISTEN_ADDR"
	envDBDriver       = "WAYFARER_DB_DRIVER"
	envDBDSN          = "WAYFARER_DB_DSN"
	envLogLevel       = "WAYFARER_LOG_LEVEL"
	envLogFormat      = "WAYFARER_LOG_FORMAT"
	envJWTSecret      = "WAYFARER_JWT_SECRET"
	envActivityBuffer = "WAYFARER_ACTIVITY_BUFFER"
)

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	DBDriver       string
	DBDSN          string
	LogLevel       slog.Level
	LogFormat      string
	JWTSecret      string
	ActivityBuffer int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		DBDriver:       defaultDBDriver,
		DBDSN:          defaultDBDSN,
		LogLevel:       slog.LevelInfo,
		LogFormat:      defaultLogFormat,
		ActivityBuffer: defaultActivityBuffer,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBDriver); v != "" {
		cfg.DBDriver = strings.ToLower(v)
	}
	if v := os.Getenv(envDBDSN); v != "" {
		cfg.DBDSN = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFormat); v != "" {
		cfg.LogFormat = parseLogFormat(v)
	}
	if v := os.Getenv(envJWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv(envActivityBuffer); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ActivityBuffer = n
		}
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLogFormat(s string) string {
	if strings.ToLower(s) == FormatText {
		return FormatText
	}
	return FormatJSON
}

// NewLogger creates a structured logger writing to w at the given level.
// The text format is colored for terminals; anything else logs JSON.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if format == FormatText {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
