package inference

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies an inference failure
type ErrorKind int

// Inference failure kinds
const (
	// KindTimeout means the model did not produce output within the
	// configured deadline. Retryable.
	KindTimeout ErrorKind = iota

	// KindModelUnavailable means the model session could not be used.
	// Retryable.
	KindModelUnavailable

	// KindInvalidInput means the request cannot be scored as given.
	// Not retryable.
	KindInvalidInput
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// InferenceError wraps a failure from the model with its retry class
type InferenceError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface
func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("inference %s", e.Kind)
}

// Unwrap returns the underlying error
func (e *InferenceError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is an inference timeout
func IsTimeout(err error) bool {
	var infErr *InferenceError
	return errors.As(err, &infErr) && infErr.Kind == KindTimeout
}

// IsModelUnavailable reports whether err means the model cannot serve
func IsModelUnavailable(err error) bool {
	var infErr *InferenceError
	return errors.As(err, &infErr) && infErr.Kind == KindModelUnavailable
}

// IsInvalidInput reports whether err is a permanent input failure
func IsInvalidInput(err error) bool {
	var infErr *InferenceError
	return errors.As(err, &infErr) && infErr.Kind == KindInvalidInput
}

// Request is one content item to score
type Request struct {
	ContentHash string
	ContentText string
	ImageURL    string
}

// Result holds the model's scores for a request
type Result struct {
	// Fakeness is the model's estimate that the content is fabricated,
	// in [0, 1].
	Fakeness float32

	// Emotion is the emotional manipulation score, in [0, 1].
	Emotion float32

	// VisualArtifact is the generated-image artifact score, in [0, 1].
	// Zero when the request carries no image.
	VisualArtifact float32

	// Latency is the wall time spent in the model.
	Latency time.Duration
}

// Engine scores content items. Implementations must be safe for
// concurrent use.
type Engine interface {
	// Predict scores one request. It returns an *InferenceError on
	// failure so callers can decide whether to retry.
	Predict(ctx context.Context, req *Request) (*Result, error)

	// Close releases model resources. The engine cannot be used after.
	Close() error
}
