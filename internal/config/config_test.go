package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ocr:jobs", cfg.QueueName)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, HistoryBackendSQLite, cfg.HistoryBackend)
	assert.Equal(t, EngineBackendCLI, cfg.EngineBackend)
	assert.Equal(t, 2*time.Minute, cfg.EngineTimeout)
	assert.NotEmpty(t, cfg.TesseractPath)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("OCR_QUEUE_NAME", "scans")
	t.Setenv("OCR_WORKER_CONCURRENCY", "4")
	t.Setenv("OCR_ENGINE_TIMEOUT_MS", "5000")
	t.Setenv("OCR_ENGINE", EngineBackendLibrary)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "scans", cfg.QueueName)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.EngineTimeout)
	assert.Equal(t, EngineBackendLibrary, cfg.EngineBackend)
}

func TestLoadIgnoresMalformedInt(t *testing.T) {
	t.Setenv("OCR_WORKER_CONCURRENCY", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Concurrency)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			QueueName:      "ocr:jobs",
			Concurrency:    1,
			HistoryBackend: HistoryBackendSQLite,
			HistoryPath:    "./history.db",
			EngineBackend:  EngineBackendCLI,
			EngineTimeout:  time.Minute,
		}
	}

	cfg := base()
	cfg.EngineBackend = "native"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.HistoryBackend = HistoryBackendPostgres
	assert.Error(t, cfg.Validate(), "postgres backend requires DATABASE_URL")
	cfg.DatabaseURL = "postgres://localhost/ocr"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.HistoryPath = ""
	assert.Error(t, cfg.Validate(), "sqlite backend requires a path")

	cfg = base()
	cfg.Concurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.EngineTimeout = 500 * time.Millisecond
	assert.Error(t, cfg.Validate())
}

func TestResolveTesseractPathPrefersExplicit(t *testing.T) {
	t.Setenv("OCR_TESSERACT_PATH", "/opt/env/tesseract")

	assert.Equal(t, "/opt/explicit/tesseract", ResolveTesseractPath("/opt/explicit/tesseract"))
	assert.Equal(t, "/opt/env/tesseract", ResolveTesseractPath(""))
}

func TestResolveTesseractPathFallsBack(t *testing.T) {
	t.Setenv("OCR_TESSERACT_PATH", "")
	t.Setenv("PATH", t.TempDir())

	// With nothing on PATH the platform default applies.
	assert.NotEmpty(t, ResolveTesseractPath(""))
}
