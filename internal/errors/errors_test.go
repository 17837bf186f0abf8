package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStringIncludesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPersistenceFailure(cause)

	assert.Contains(t, err.Error(), "PERSISTENCE_FAILURE")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("root")
	err := NewInvalidImage("scan.png", cause)

	assert.ErrorIs(t, err, cause)
}

func TestKindOfWalksWrappedChains(t *testing.T) {
	inner := NewEngineTimeout(2*time.Second, nil)
	wrapped := fmt.Errorf("job failed: %w", inner)

	assert.Equal(t, KindEngineTimeout, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindEngineTimeout))
	assert.False(t, IsKind(wrapped, KindEngineFailure))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindBusy))
}

func TestUserMessageIsStableAndHumanReadable(t *testing.T) {
	err := NewEngineFailure("Tesseract Open Source OCR Engine v5", errors.New("exit status 1"))

	// The raw diagnostics stay in Detail; the user-facing message never
	// embeds them.
	assert.Equal(t, "The OCR engine reported an error.", err.UserMessage())
	assert.Equal(t, "Tesseract Open Source OCR Engine v5", err.Detail)
}

func TestPackageLevelUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", NewBusy())
	assert.Equal(t, "A recognition run is already in progress.", UserMessage(wrapped))

	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
	assert.Equal(t, "", UserMessage(nil))
}

func TestFactoriesStampTimestamps(t *testing.T) {
	before := time.Now()
	err := NewBusy()
	require.False(t, err.Timestamp.IsZero())
	assert.WithinDuration(t, before, err.Timestamp, time.Minute)
}
