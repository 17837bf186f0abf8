package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Level strings follow zerolog ("debug",
// "info", "warn", "error"); unknown values fall back to info. Console
// output is human-readable; set OCR_LOG_JSON=1 for machine ingestion.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if os.Getenv("OCR_LOG_JSON") == "1" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger.Level(lvl).With().Timestamp().Logger()
}
