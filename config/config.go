// Package config loads and validates the detector's JSON configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
)

// Duration wraps time.Duration to accept "5s" style strings in JSON
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts either a duration string or nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	case float64:
		d.Duration = time.Duration(value)
		return nil
	default:
		return fmt.Errorf("duration must be a string or number, got %T", raw)
	}
}

// MarshalJSON emits the duration in string form
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// NATSConfig holds connection settings
type NATSConfig struct {
	URL           string   `json:"url"`
	Name          string   `json:"name"`
	Username      string   `json:"username,omitempty"`
	Password      string   `json:"password,omitempty"`
	Token         string   `json:"token,omitempty"`
	MaxReconnects int      `json:"max_reconnects"`
	ReconnectWait Duration `json:"reconnect_wait"`
	Timeout       Duration `json:"timeout"`
	DrainTimeout  Duration `json:"drain_timeout"`
}

// StreamConfig holds stream and consumer provisioning settings
type StreamConfig struct {
	// Name is the JetStream stream holding analysis events.
	Name string `json:"name"`

	// Subject is the raw event subject the stream captures.
	Subject string `json:"subject"`

	// ResultSubject receives analysis results.
	ResultSubject string `json:"result_subject"`

	// DeadLetterSubject receives dead letter records.
	DeadLetterSubject string `json:"dead_letter_subject"`

	// ConsumerName is the durable pull consumer name.
	ConsumerName string `json:"consumer_name"`

	// AckWait is how long the broker waits for an ack before
	// redelivering.
	AckWait Duration `json:"ack_wait"`

	// MaxDeliver caps broker-side redeliveries per event.
	MaxDeliver int `json:"max_deliver"`

	// DuplicateWindow is the broker's deduplication window for
	// published message IDs.
	DuplicateWindow Duration `json:"duplicate_window"`
}

// InferenceConfig holds model settings
type InferenceConfig struct {
	ModelPath   string   `json:"model_path"`
	LibraryPath string   `json:"library_path,omitempty"`
	Timeout     Duration `json:"timeout"`
	MaxSessions int      `json:"max_sessions"`
}

// RulesConfig holds rule evaluation settings
type RulesConfig struct {
	// ProgramPath optionally points at a Datalog file replacing the
	// built-in verdict program.
	ProgramPath string `json:"program_path,omitempty"`

	// Timeout bounds one evaluation.
	Timeout Duration `json:"timeout"`

	// TrustedSources lists source IDs treated as trusted.
	TrustedSources []string `json:"trusted_sources"`
}

// PipelineConfig holds orchestration settings
type PipelineConfig struct {
	MaxConcurrent  int      `json:"max_concurrent"`
	SlotWait       Duration `json:"slot_wait"`
	MaxAttempts    int      `json:"max_attempts"`
	InitialBackoff Duration `json:"initial_backoff"`
	MaxBackoff     Duration `json:"max_backoff"`
	PublishTimeout Duration `json:"publish_timeout"`
	FetchTimeout   Duration `json:"fetch_timeout"`

	// Score thresholds for fact discretization.
	FakenessHigh     float32 `json:"fakeness_high"`
	FakenessElevated float32 `json:"fakeness_elevated"`
	EmotionHigh      float32 `json:"emotion_high"`
	VisualArtifact   float32 `json:"visual_artifact"`
}

// MetricsConfig holds the metrics endpoint settings
type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	Port       int    `json:"port"`
	Path       string `json:"path"`
	BufferSize int    `json:"buffer_size"`
}

// Config is the root configuration
type Config struct {
	NATS      NATSConfig      `json:"nats"`
	Stream    StreamConfig    `json:"stream"`
	Inference InferenceConfig `json:"inference"`
	Rules     RulesConfig     `json:"rules"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Metrics   MetricsConfig   `json:"metrics"`
	LogLevel  string          `json:"log_level"`
}

// DefaultConfig returns the standard settings
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "nsai-detector",
			MaxReconnects: -1,
			ReconnectWait: Duration{2 * time.Second},
			Timeout:       Duration{5 * time.Second},
			DrainTimeout:  Duration{10 * time.Second},
		},
		Stream: StreamConfig{
			Name:              "INFERENCE_JOBS",
			Subject:           "disinfo.raw",
			ResultSubject:     "disinfo.results",
			DeadLetterSubject: "disinfo.deadletter",
			ConsumerName:      "detector_worker",
			AckWait:           Duration{30 * time.Second},
			MaxDeliver:        5,
			DuplicateWindow:   Duration{2 * time.Minute},
		},
		Inference: InferenceConfig{
			ModelPath:   "models/detector.onnx",
			Timeout:     Duration{10 * time.Second},
			MaxSessions: 4,
		},
		Rules: RulesConfig{
			Timeout: Duration{2 * time.Second},
		},
		Pipeline: PipelineConfig{
			MaxConcurrent:    8,
			SlotWait:         Duration{5 * time.Second},
			MaxAttempts:      3,
			InitialBackoff:   Duration{100 * time.Millisecond},
			MaxBackoff:       Duration{5 * time.Second},
			PublishTimeout:   Duration{5 * time.Second},
			FetchTimeout:     Duration{5 * time.Second},
			FakenessHigh:     0.8,
			FakenessElevated: 0.6,
			EmotionHigh:      0.7,
			VisualArtifact:   0.5,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			Port:       9090,
			Path:       "/metrics",
			BufferSize: 1024,
		},
		LogLevel: "info",
	}
}

// Load reads a JSON config file over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
		}
		return nil, errors.WrapFatal(err, "Config", "Load", "read config file")
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	var problems []string

	if c.NATS.URL == "" {
		problems = append(problems, "nats.url is required")
	}
	if c.Stream.Name == "" {
		problems = append(problems, "stream.name is required")
	}
	if c.Stream.Subject == "" {
		problems = append(problems, "stream.subject is required")
	}
	if c.Stream.ResultSubject == "" {
		problems = append(problems, "stream.result_subject is required")
	}
	if c.Stream.DeadLetterSubject == "" {
		problems = append(problems, "stream.dead_letter_subject is required")
	}
	if c.Stream.ConsumerName == "" {
		problems = append(problems, "stream.consumer_name is required")
	}
	if c.Stream.MaxDeliver <= 0 {
		problems = append(problems, "stream.max_deliver must be positive")
	}
	if c.Inference.ModelPath == "" {
		problems = append(problems, "inference.model_path is required")
	}
	if c.Inference.Timeout.Duration <= 0 {
		problems = append(problems, "inference.timeout must be positive")
	}
	if c.Inference.MaxSessions <= 0 {
		problems = append(problems, "inference.max_sessions must be positive")
	}
	if c.Rules.Timeout.Duration <= 0 {
		problems = append(problems, "rules.timeout must be positive")
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		problems = append(problems, "pipeline.max_concurrent must be positive")
	}
	if c.Pipeline.MaxAttempts <= 0 {
		problems = append(problems, "pipeline.max_attempts must be positive")
	}
	if c.Pipeline.FakenessElevated > c.Pipeline.FakenessHigh {
		problems = append(problems, "pipeline.fakeness_elevated exceeds pipeline.fakeness_high")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		problems = append(problems, "metrics.port must be a valid port")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(problems) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%d problems: %v", len(problems), problems),
			"Config", "Validate", "check settings")
	}
	return nil
}
