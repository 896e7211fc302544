package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil defaults transient", nil, ErrorTransient},
		{"connection timeout", ErrConnectionTimeout, ErrorTransient},
		{"model unavailable", ErrModelUnavailable, ErrorTransient},
		{"context deadline", context.DeadlineExceeded, ErrorTransient},
		{"invalid data", ErrInvalidData, ErrorInvalid},
		{"parsing failed", ErrParsingFailed, ErrorInvalid},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"resource exhausted", ErrResourceExhausted, ErrorFatal},
		{"unknown defaults transient", stderrors.New("something odd"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrapPreservesClassification(t *testing.T) {
	wrapped := WrapTransient(ErrConnectionLost, "Source", "Next", "fetch batch")
	assert.True(t, IsTransient(wrapped))
	assert.True(t, stderrors.Is(wrapped, ErrConnectionLost))

	invalid := WrapInvalid(ErrInvalidData, "Codec", "Decode", "unmarshal payload")
	assert.True(t, IsInvalid(invalid))
	assert.False(t, IsTransient(invalid))

	fatal := WrapFatal(ErrInvalidConfig, "Orchestrator", "Initialize", "validate config")
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsInvalid(fatal))
}

func TestWrapFormat(t *testing.T) {
	err := Wrap(stderrors.New("boom"), "Codec", "Decode", "unmarshal payload")
	assert.Equal(t, "Codec.Decode: unmarshal payload failed: boom", err.Error())
	assert.Nil(t, Wrap(nil, "Codec", "Decode", "noop"))
}

func TestClassifiedErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", WrapTransient(ErrConnectionLost, "Source", "Next", "fetch"))

	var ce *ClassifiedError
	require.True(t, stderrors.As(wrapped, &ce))
	assert.Equal(t, ErrorTransient, ce.Class)
	assert.Equal(t, "Source", ce.Component)
	assert.Equal(t, "Next", ce.Operation)
}

func TestTransientPatternFallback(t *testing.T) {
	assert.True(t, IsTransient(stderrors.New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(stderrors.New("server temporarily unavailable")))
	assert.False(t, IsTransient(nil))
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffDelay(0))
	assert.Equal(t, 5*time.Second, cfg.BackoffDelay(10), "capped at MaxDelay")
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:    5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, cfg.BackoffDelay(0))
	assert.Equal(t, 200*time.Millisecond, cfg.BackoffDelay(1))
	assert.Equal(t, 400*time.Millisecond, cfg.BackoffDelay(2))
	assert.Equal(t, 800*time.Millisecond, cfg.BackoffDelay(3))
	assert.Equal(t, 1*time.Second, cfg.BackoffDelay(4), "capped at MaxDelay")
	assert.Equal(t, 1*time.Second, cfg.BackoffDelay(10))
}
