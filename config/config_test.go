package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "INFERENCE_JOBS", cfg.Stream.Name)
	assert.Equal(t, "disinfo.raw", cfg.Stream.Subject)
	assert.Equal(t, "detector_worker", cfg.Stream.ConsumerName)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.SlotWait.Duration)
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("missing file is invalid", func(t *testing.T) {
		_, err := Load("/nonexistent/config.json")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("overrides merge over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"nats": {"url": "nats://broker:4222"},
			"pipeline": {"max_concurrent": 2, "slot_wait": "250ms"},
			"rules": {"trusted_sources": ["reuters"]}
		}`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
		assert.Equal(t, 2, cfg.Pipeline.MaxConcurrent)
		assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.SlotWait.Duration)
		assert.Equal(t, []string{"reuters"}, cfg.Rules.TrustedSources)
		// untouched defaults survive
		assert.Equal(t, "INFERENCE_JOBS", cfg.Stream.Name)
	})

	t.Run("malformed JSON is invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"pipeline": {"max_concurrent": 0}
		}`), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
		assert.Contains(t, err.Error(), "max_concurrent")
	})
}

func TestDurationUnmarshal(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
		assert.Equal(t, 90*time.Second, d.Duration)
	})

	t.Run("numeric nanoseconds", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
		assert.Equal(t, time.Second, d.Duration)
	})

	t.Run("bad string", func(t *testing.T) {
		var d Duration
		assert.Error(t, d.UnmarshalJSON([]byte(`"not a duration"`)))
	})

	t.Run("bad type", func(t *testing.T) {
		var d Duration
		assert.Error(t, d.UnmarshalJSON([]byte(`true`)))
	})

	t.Run("round trip", func(t *testing.T) {
		d := Duration{90 * time.Second}
		data, err := d.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"1m30s"`, string(data))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{"missing NATS URL", func(c *Config) { c.NATS.URL = "" }, "nats.url"},
		{"missing stream name", func(c *Config) { c.Stream.Name = "" }, "stream.name"},
		{"missing model path", func(c *Config) { c.Inference.ModelPath = "" }, "model_path"},
		{"zero rule timeout", func(c *Config) { c.Rules.Timeout.Duration = 0 }, "rules.timeout"},
		{"threshold inversion", func(c *Config) {
			c.Pipeline.FakenessElevated = 0.9
			c.Pipeline.FakenessHigh = 0.5
		}, "fakeness_elevated"},
		{"bad metrics port", func(c *Config) { c.Metrics.Port = 70000 }, "metrics.port"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}
