package orchestrator

import (
	"fmt"
	"time"
)

// Default pipeline settings
const (
	DefaultMaxConcurrent  = 8
	DefaultSlotWait       = 5 * time.Second
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultRuleTimeout    = 2 * time.Second
	DefaultPublishTimeout = 5 * time.Second
	DefaultFetchTimeout   = 5 * time.Second
)

// Default subjects
const (
	DefaultResultSubject     = "disinfo.results"
	DefaultDeadLetterSubject = "disinfo.deadletter"
)

// Default score thresholds, matching the model's calibration
const (
	DefaultFakenessHigh     = 0.8
	DefaultFakenessElevated = 0.6
	DefaultEmotionHigh      = 0.7
	DefaultVisualArtifact   = 0.5
)

// Thresholds discretize raw model scores into rule facts
type Thresholds struct {
	// FakenessHigh is the score above which fakeness(high) holds.
	FakenessHigh float32

	// FakenessElevated is the score above which fakeness(elevated)
	// holds. Must not exceed FakenessHigh.
	FakenessElevated float32

	// EmotionHigh is the score above which emotion(high) holds.
	EmotionHigh float32

	// VisualArtifact is the score above which visual(artifact) holds.
	VisualArtifact float32
}

// Config holds the orchestrator's pipeline settings
type Config struct {
	// MaxConcurrent caps the number of events processed at once.
	MaxConcurrent int

	// SlotWait bounds how long a fetched event waits for a work slot
	// before being left for redelivery.
	SlotWait time.Duration

	// MaxAttempts is the per-event processing attempt budget for
	// transient failures.
	MaxAttempts int

	// InitialBackoff and MaxBackoff shape the delay between attempts.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// RuleTimeout bounds one rule evaluation.
	RuleTimeout time.Duration

	// PublishTimeout bounds one result publish.
	PublishTimeout time.Duration

	// FetchTimeout bounds one consumer fetch.
	FetchTimeout time.Duration

	// ResultSubject receives analysis results.
	ResultSubject string

	// DeadLetterSubject receives dead letter records.
	DeadLetterSubject string

	Thresholds Thresholds
}

// DefaultConfig returns the standard pipeline settings
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:     DefaultMaxConcurrent,
		SlotWait:          DefaultSlotWait,
		MaxAttempts:       DefaultMaxAttempts,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		RuleTimeout:       DefaultRuleTimeout,
		PublishTimeout:    DefaultPublishTimeout,
		FetchTimeout:      DefaultFetchTimeout,
		ResultSubject:     DefaultResultSubject,
		DeadLetterSubject: DefaultDeadLetterSubject,
		Thresholds: Thresholds{
			FakenessHigh:     DefaultFakenessHigh,
			FakenessElevated: DefaultFakenessElevated,
			EmotionHigh:      DefaultEmotionHigh,
			VisualArtifact:   DefaultVisualArtifact,
		},
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.SlotWait <= 0 {
		return fmt.Errorf("slot wait must be positive, got %v", c.SlotWait)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive, got %v", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max backoff %v is less than initial backoff %v",
			c.MaxBackoff, c.InitialBackoff)
	}
	if c.RuleTimeout <= 0 {
		return fmt.Errorf("rule timeout must be positive, got %v", c.RuleTimeout)
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be positive, got %v", c.PublishTimeout)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %v", c.FetchTimeout)
	}
	if c.ResultSubject == "" {
		return fmt.Errorf("result subject is required")
	}
	if c.DeadLetterSubject == "" {
		return fmt.Errorf("dead letter subject is required")
	}
	if c.Thresholds.FakenessElevated > c.Thresholds.FakenessHigh {
		return fmt.Errorf("elevated fakeness threshold %v exceeds high threshold %v",
			c.Thresholds.FakenessElevated, c.Thresholds.FakenessHigh)
	}
	return nil
}
