package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
)

func TestRegisterAndUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test",
	})

	require.NoError(t, registry.Register("orchestrator", "test_counter_total", counter))

	assert.True(t, registry.Unregister("orchestrator", "test_counter_total"))
	assert.False(t, registry.Unregister("orchestrator", "test_counter_total"), "second unregister is a no-op")
}

func TestRegisterDuplicateKey(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "test"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup2_total", Help: "test"})

	require.NoError(t, registry.Register("svc", "dup_total", first))

	err := registry.Register("svc", "dup_total", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterPrometheusConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "conflict_total", Help: "test"})
	clone := prometheus.NewCounter(prometheus.CounterOpts{Name: "conflict_total", Help: "test"})

	require.NoError(t, registry.Register("svc-a", "conflict_total", first))

	err := registry.Register("svc-b", "conflict_total", clone)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestCoreMetricsRegistered(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()
	require.NotNil(t, m)

	// Recording against the core set must not panic and must be gatherable
	m.RecordEventReceived("disinfo.raw")
	m.RecordOutcome(OutcomeAcknowledged)
	m.RecordNATSStatus(true)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
