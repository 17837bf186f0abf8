// Package queue consumes recognition jobs from a Redis-backed queue
// and runs them through the pipeline. Asynq handles task delivery;
// terminal job events are published on a Redis pub/sub channel so
// submitters can observe completion without polling.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	oerr "github.com/textlift/ocr-worker/internal/errors"
	"github.com/textlift/ocr-worker/internal/pipeline"
)

// TaskTypeRecognize is the asynq task type for a recognition job.
const TaskTypeRecognize = "ocr:recognize"

const defaultProcessingTimeout = 5 * time.Minute

// JobData is the wire payload of a recognition job. Exactly one of
// Path or FileBuffer carries the source image; FileBuffer round-trips
// as base64 through JSON.
type JobData struct {
	JobID      string          `json:"jobId"`
	FileName   string          `json:"fileName"`
	Path       string          `json:"path,omitempty"`
	FileBuffer []byte          `json:"fileBuffer,omitempty"`
	Config     pipeline.Config `json:"config"`
}

// JobEvent is published on the events channel when a job reaches a
// terminal state.
type JobEvent struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"errorKind,omitempty"`
	Duration  int64     `json:"durationMs"`
	Timestamp time.Time `json:"timestamp"`
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	ProcessingTimeout time.Duration
}

// Consumer pulls recognition jobs off the queue and executes them.
type Consumer struct {
	client   *asynq.Client
	server   *asynq.Server
	mux      *asynq.ServeMux
	rdb      *redis.Client
	pipeline *pipeline.Pipeline
	cfg      *ConsumerConfig
	log      zerolog.Logger
}

// NewConsumer creates a consumer bound to the given pipeline.
func NewConsumer(cfg *ConsumerConfig, p *pipeline.Pipeline, log zerolog.Logger) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	pubOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)
	rdb := redis.NewClient(pubOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().
					Str("type", task.Type()).
					Err(err).
					Msg("task processing error")
			}),
		},
	)

	mux := asynq.NewServeMux()
	consumer := &Consumer{
		client:   client,
		server:   server,
		mux:      mux,
		rdb:      rdb,
		pipeline: p,
		cfg:      cfg,
		log:      log,
	}
	mux.HandleFunc(TaskTypeRecognize, consumer.handleRecognize)

	return consumer, nil
}

// Start begins consuming jobs. It returns once the server is running.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().
		Int("concurrency", c.cfg.Concurrency).
		Str("queue", c.cfg.QueueName).
		Msg("starting queue consumer")

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.log.Error().Err(err).Msg("queue consumer stopped")
		}
	}()
	return nil
}

// Stop drains in-flight jobs and shuts the consumer down.
func (c *Consumer) Stop(ctx context.Context) error {
	c.log.Info().Msg("stopping queue consumer")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close queue client: %w", err)
	}
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

// Health pings Redis so readiness checks can include the queue.
func (c *Consumer) Health(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Enqueue submits a recognition job. Jobs are not retried: a failed
// run is reported as a terminal event and rerunning it would repeat
// the same deterministic failure.
func (c *Consumer) Enqueue(ctx context.Context, job JobData) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	timeout := c.processingTimeout()
	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeRecognize, payload),
		asynq.Queue(c.cfg.QueueName),
		asynq.MaxRetry(0),
		asynq.Timeout(timeout+30*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return info.ID, nil
}

func (c *Consumer) processingTimeout() time.Duration {
	if c.cfg.ProcessingTimeout > 0 {
		return c.cfg.ProcessingTimeout
	}
	return defaultProcessingTimeout
}

func (c *Consumer) handleRecognize(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var job JobData
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %v: %w", err, asynq.SkipRetry)
	}

	log := c.log.With().Str("job_id", job.JobID).Logger()
	log.Info().
		Str("file", job.FileName).
		Int("buffer_bytes", len(job.FileBuffer)).
		Msg("processing recognition job")

	timeout := c.processingTimeout()
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	source := pipeline.Source{Path: job.Path, Data: job.FileBuffer}
	if source.Path == "" && job.FileName != "" {
		source.Path = job.FileName
	}

	result := c.pipeline.Execute(processCtx, source, job.Config, nil)
	duration := time.Since(start)

	switch result.Status {
	case pipeline.StatusCompleted:
		log.Info().
			Dur("duration", duration).
			Int("text_bytes", len(result.Text())).
			Msg("recognition job completed")

		if _, err := c.pipeline.Record(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to record completed job")
		}
		c.publishEvent(ctx, job.JobID, result, duration)
		return nil

	case pipeline.StatusCancelled:
		if processCtx.Err() == context.DeadlineExceeded {
			timeoutErr := oerr.NewEngineTimeout(timeout, processCtx.Err())
			result.Err = timeoutErr
			result.Status = pipeline.StatusFailed
			log.Error().Dur("duration", duration).Msg("recognition job timed out")
			c.publishEvent(ctx, job.JobID, result, duration)
			return fmt.Errorf("job timed out: %v: %w", timeoutErr, asynq.SkipRetry)
		}
		// Shutdown took the context down; hand the job back to the
		// queue so a restarted worker picks it up.
		log.Warn().Msg("recognition job interrupted by shutdown")
		return processCtx.Err()

	default:
		log.Error().
			Dur("duration", duration).
			Err(result.Err).
			Msg("recognition job failed")
		c.publishEvent(ctx, job.JobID, result, duration)
		return fmt.Errorf("recognition failed: %v: %w", result.Err, asynq.SkipRetry)
	}
}

// EventsChannel returns the pub/sub channel terminal events go to.
func (c *Consumer) EventsChannel() string {
	return c.cfg.QueueName + ":events"
}

func (c *Consumer) publishEvent(ctx context.Context, jobID string, result *pipeline.Result, duration time.Duration) {
	event := JobEvent{
		JobID:     jobID,
		Status:    string(result.Status),
		Duration:  duration.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
	if result.Err != nil {
		event.Error = oerr.UserMessage(result.Err)
		event.ErrorKind = string(oerr.KindOf(result.Err))
	}

	payload, err := json.Marshal(event)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to marshal job event")
		return
	}
	if err := c.rdb.Publish(ctx, c.EventsChannel(), payload).Err(); err != nil {
		c.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to publish job event")
	}
}
