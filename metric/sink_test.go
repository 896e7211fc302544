package metric

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkDispatchesSamples(t *testing.T) {
	registry := NewMetricsRegistry()
	sink, err := NewSink(registry, 16)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	sink.Record(SampleEventReceived, 1, map[string]string{"subject": "disinfo.raw"})
	sink.Record(SampleOutcome, 1, map[string]string{"outcome": OutcomeAcknowledged})
	sink.Record(SampleRetry, 1, map[string]string{"stage": "inferring"})
	sink.Record(SampleResultPublished, 1, nil)
	sink.Record(SampleInFlightDelta, 1, nil)
	sink.Record(SampleInFlightDelta, -1, nil)

	require.NoError(t, sink.Stop(time.Second))

	m := registry.CoreMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsReceived.WithLabelValues("disinfo.raw")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsProcessed.WithLabelValues(OutcomeAcknowledged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("inferring")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsPublished))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, int64(0), sink.Dropped())
}

func TestSinkDropsWhenFull(t *testing.T) {
	registry := NewMetricsRegistry()
	sink, err := NewSink(registry, 2)
	require.NoError(t, err)

	// Not started: nothing drains the buffer, so the third record must drop
	sink.Record(SampleResultPublished, 1, nil)
	sink.Record(SampleResultPublished, 1, nil)
	sink.Record(SampleResultPublished, 1, nil)

	assert.Equal(t, int64(1), sink.Dropped())
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.droppedCounter))
}

func TestSinkRecordNeverBlocks(t *testing.T) {
	registry := NewMetricsRegistry()
	sink, err := NewSink(registry, 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			sink.Record(SampleResultPublished, 1, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
	assert.Greater(t, sink.Dropped(), int64(0))
}

func TestSinkUnknownSampleCounted(t *testing.T) {
	registry := NewMetricsRegistry()
	sink, err := NewSink(registry, 4)
	require.NoError(t, err)

	require.NoError(t, sink.Start(context.Background()))
	sink.Record("no_such_sample", 1, nil)
	require.NoError(t, sink.Stop(time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.unknownCounter))
}

func TestSinkRecordConcurrentWithStop(t *testing.T) {
	for round := 0; round < 20; round++ {
		registry := NewMetricsRegistry()
		sink, err := NewSink(registry, 8)
		require.NoError(t, err)
		require.NoError(t, sink.Start(context.Background()))

		var wg sync.WaitGroup
		stop := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						sink.Record(SampleResultPublished, 1, nil)
					}
				}
			}()
		}

		time.Sleep(time.Millisecond)
		require.NoError(t, sink.Stop(time.Second))
		close(stop)
		wg.Wait()
	}
}

func TestSinkRecordAfterStopDrops(t *testing.T) {
	registry := NewMetricsRegistry()
	sink, err := NewSink(registry, 4)
	require.NoError(t, err)

	require.NoError(t, sink.Start(context.Background()))
	require.NoError(t, sink.Stop(time.Second))

	sink.Record(SampleResultPublished, 1, nil)
	assert.Equal(t, int64(1), sink.Dropped())
}
