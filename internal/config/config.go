// Configuration for the OCR worker.
//
// Loads configuration from environment variables; main loads .env first
// via godotenv so a checked-in file can supply defaults.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

const (
	EngineBackendCLI     = "cli"
	EngineBackendLibrary = "library"

	HistoryBackendSQLite   = "sqlite"
	HistoryBackendPostgres = "postgres"
)

// Config holds worker configuration.
type Config struct {
	// Redis queue configuration (cmd/worker only)
	RedisURL    string
	QueueName   string
	Concurrency int

	// History store configuration
	HistoryBackend string
	HistoryPath    string // sqlite file path
	DatabaseURL    string // postgres DSN, required for the postgres backend

	// Engine configuration
	EngineBackend string
	TesseractPath string
	TessdataDir   string
	EngineTimeout time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		RedisURL:       getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		QueueName:      getEnvOrDefault("OCR_QUEUE_NAME", "ocr:jobs"),
		Concurrency:    getEnvAsIntOrDefault("OCR_WORKER_CONCURRENCY", 1),
		HistoryBackend: getEnvOrDefault("OCR_HISTORY_BACKEND", HistoryBackendSQLite),
		HistoryPath:    getEnvOrDefault("OCR_HISTORY_PATH", "./ocr_history.db"),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", ""),
		EngineBackend:  getEnvOrDefault("OCR_ENGINE", EngineBackendCLI),
		TesseractPath:  ResolveTesseractPath(os.Getenv("OCR_TESSERACT_PATH")),
		TessdataDir:    getEnvOrDefault("OCR_TESSDATA_DIR", ""),
		EngineTimeout:  time.Duration(getEnvAsIntOrDefault("OCR_ENGINE_TIMEOUT_MS", 120000)) * time.Millisecond,
		LogLevel:       getEnvOrDefault("OCR_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	switch c.EngineBackend {
	case EngineBackendCLI, EngineBackendLibrary:
	default:
		return fmt.Errorf("OCR_ENGINE must be %q or %q, got %q",
			EngineBackendCLI, EngineBackendLibrary, c.EngineBackend)
	}

	switch c.HistoryBackend {
	case HistoryBackendSQLite:
		if c.HistoryPath == "" {
			return fmt.Errorf("OCR_HISTORY_PATH is required for the sqlite backend")
		}
	case HistoryBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("OCR_HISTORY_BACKEND must be %q or %q, got %q",
			HistoryBackendSQLite, HistoryBackendPostgres, c.HistoryBackend)
	}

	if c.Concurrency < 1 || c.Concurrency > 100 {
		return fmt.Errorf("OCR_WORKER_CONCURRENCY must be between 1 and 100, got %d", c.Concurrency)
	}

	if c.EngineTimeout < time.Second {
		return fmt.Errorf("OCR_ENGINE_TIMEOUT_MS must be at least 1000, got %v", c.EngineTimeout)
	}

	return nil
}

// ResolveTesseractPath resolves the engine binary location with a fixed
// override order: explicit value > OCR_TESSERACT_PATH > $PATH lookup >
// platform default. The result is never compiled in.
func ResolveTesseractPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("OCR_TESSERACT_PATH"); env != "" {
		return env
	}
	if found, err := exec.LookPath("tesseract"); err == nil {
		return found
	}
	if runtime.GOOS == "windows" {
		return `C:\Program Files\Tesseract-OCR\tesseract.exe`
	}
	return "/usr/bin/tesseract"
}

// getEnvOrDefault gets environment variable or returns default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default.
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
