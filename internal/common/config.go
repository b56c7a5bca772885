package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Ingest   IngestConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration. DSN is the optional
// remote store; LocalPath is the sqlite cache that is always written.
type DatabaseConfig struct {
	DSN              string
	LocalPath        string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
}

// OCRConfig holds recognition settings
type OCRConfig struct {
	Binary        string
	Lang          string
	TessdataDir   string
	PSM           int
	HeicConverter string
	CacheTTL      time.Duration
}

// IngestConfig controls directory watching and the worker queue.
type IngestConfig struct {
	WatchDir        string
	Workers         int
	QueueSize       int
	Timeout         time.Duration
	Debounce        time.Duration
	DuplicateAction string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			LocalPath:        getEnv("LOCAL_DB_PATH", "./pnl-tracker.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
		OCR: OCRConfig{
			Binary:        getEnv("TESSERACT_BIN", "tesseract"),
			Lang:          getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			PSM:           getEnvAsInt("OCR_PSM", 6),
			HeicConverter: getEnv("OCR_HEIC_CONVERTER", "magick"),
			CacheTTL:      getEnvAsDuration("OCR_CACHE_TTL", time.Hour),
		},
		Ingest: IngestConfig{
			WatchDir:        getEnv("WATCH_DIR", ""),
			Workers:         getEnvAsInt("INGEST_WORKERS", 2),
			QueueSize:       getEnvAsInt("INGEST_QUEUE_SIZE", 64),
			Timeout:         getEnvAsDuration("INGEST_TIMEOUT", 2*time.Minute),
			Debounce:        getEnvAsDuration("INGEST_DEBOUNCE", 500*time.Millisecond),
			DuplicateAction: strings.ToLower(getEnv("DUPLICATE_ACTION", "skip")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Database.LocalPath == "" {
		return NewAppError("CONFIG_ERROR", "LOCAL_DB_PATH is required", ErrInvalidInput)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return NewAppError("CONFIG_ERROR", "DB_MIN_CONNS exceeds DB_MAX_CONNS", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Ingest.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "INGEST_WORKERS must be at least 1", ErrInvalidInput)
	}
	if c.Ingest.QueueSize < 1 {
		return NewAppError("CONFIG_ERROR", "INGEST_QUEUE_SIZE must be at least 1", ErrInvalidInput)
	}
	switch c.Ingest.DuplicateAction {
	case "skip", "replace", "add":
	default:
		return NewAppError("CONFIG_ERROR", "DUPLICATE_ACTION must be skip, replace or add", ErrInvalidInput)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return NewAppError("CONFIG_ERROR", "LOG_FORMAT must be text or json", ErrInvalidInput)
	}
	return nil
}
