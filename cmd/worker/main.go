// OCR worker entry point.
//
// Consumes recognition jobs from a Redis-backed queue, runs them
// through the pipeline (preprocess, recognize, spellcheck) and appends
// completed runs to the history store. Shuts down gracefully on
// SIGINT/SIGTERM, draining in-flight jobs first.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/textlift/ocr-worker/internal/config"
	"github.com/textlift/ocr-worker/internal/engine"
	"github.com/textlift/ocr-worker/internal/history"
	"github.com/textlift/ocr-worker/internal/logging"
	"github.com/textlift/ocr-worker/internal/pipeline"
	"github.com/textlift/ocr-worker/internal/queue"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional; the system environment applies either way.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.New(cfg.LogLevel)
	log.Info().
		Str("redis", cfg.RedisURL).
		Str("queue", cfg.QueueName).
		Str("engine", cfg.EngineBackend).
		Str("history", cfg.HistoryBackend).
		Int("concurrency", cfg.Concurrency).
		Msg("ocr worker starting")

	recorder, err := newRecorder(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer recorder.Close()

	eng := newEngine(cfg)
	pipe := pipeline.New(eng, recorder, log)

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.Concurrency,
		ProcessingTimeout: cfg.EngineTimeout + time.Minute,
	}, pipe, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize queue consumer")
	}

	ctx := context.Background()
	if err := consumer.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis is unreachable")
	}
	if err := consumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start queue consumer")
	}

	log.Info().
		Str("binary", cfg.TesseractPath).
		Str("events_channel", consumer.EventsChannel()).
		Msg("ocr worker ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("queue consumer shutdown failed")
	}

	log.Info().Msg("ocr worker stopped")
}

func newRecorder(cfg *config.Config) (history.Recorder, error) {
	if cfg.HistoryBackend == config.HistoryBackendPostgres {
		return history.NewPostgresStore(cfg.DatabaseURL)
	}
	return history.NewSQLiteStore(cfg.HistoryPath)
}

func newEngine(cfg *config.Config) engine.Engine {
	if cfg.EngineBackend == config.EngineBackendLibrary {
		return engine.NewLibraryEngine(cfg.EngineTimeout)
	}
	return engine.NewCLIEngine(cfg.TesseractPath, cfg.EngineTimeout)
}
