package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textlift/ocr-worker/internal/pipeline"
)

func testPipeline() *pipeline.Pipeline {
	return pipeline.New(nil, nil, zerolog.Nop())
}

func TestNewConsumerValidatesConfig(t *testing.T) {
	_, err := NewConsumer(&ConsumerConfig{QueueName: "q"}, testPipeline(), zerolog.Nop())
	assert.Error(t, err, "missing redis URL")

	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379"}, testPipeline(), zerolog.Nop())
	assert.Error(t, err, "missing queue name")

	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q"}, nil, zerolog.Nop())
	assert.Error(t, err, "missing pipeline")

	_, err = NewConsumer(&ConsumerConfig{RedisURL: "://broken", QueueName: "q"}, testPipeline(), zerolog.Nop())
	assert.Error(t, err, "malformed redis URL")
}

func TestNewConsumerDefaults(t *testing.T) {
	c, err := NewConsumer(&ConsumerConfig{
		RedisURL:  "redis://localhost:6379",
		QueueName: "ocr:jobs",
	}, testPipeline(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, c.cfg.Concurrency)
	assert.Equal(t, defaultProcessingTimeout, c.processingTimeout())
	assert.Equal(t, "ocr:jobs:events", c.EventsChannel())
}

func TestProcessingTimeoutOverride(t *testing.T) {
	c, err := NewConsumer(&ConsumerConfig{
		RedisURL:          "redis://localhost:6379",
		QueueName:         "ocr:jobs",
		Concurrency:       2,
		ProcessingTimeout: 30 * time.Second,
	}, testPipeline(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, c.processingTimeout())
}

func TestJobDataCarriesBufferAndConfig(t *testing.T) {
	in := JobData{
		JobID:      "job-1",
		FileName:   "scan.png",
		FileBuffer: []byte{0x89, 'P', 'N', 'G'},
		Config: pipeline.Config{
			Languages:          []string{"eng", "deu"},
			PageSegMode:        6,
			EngineMode:         1,
			Deskew:             true,
			Spellcheck:         true,
			SpellcheckLanguage: "en",
		},
	}

	payload, err := json.Marshal(in)
	require.NoError(t, err)

	var out JobData
	require.NoError(t, json.Unmarshal(payload, &out))

	assert.Equal(t, in.FileBuffer, out.FileBuffer)
	assert.Equal(t, []string{"eng", "deu"}, out.Config.Languages)
	assert.Equal(t, 6, out.Config.PageSegMode)
	assert.True(t, out.Config.Deskew)
	assert.Equal(t, "en", out.Config.SpellcheckLanguage)
	assert.NoError(t, out.Config.Validate())
}
