package metric

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sample names understood by the Sink dispatcher
const (
	SampleEventReceived      = "event_received"      // tags: subject
	SampleOutcome            = "event_outcome"       // tags: outcome
	SampleDeadLettered       = "dead_lettered"       // tags: stage, class
	SampleRetry              = "retry"               // tags: stage
	SampleStageDuration      = "stage_duration"      // tags: stage; value in seconds
	SampleProcessingDuration = "processing_duration" // value in seconds
	SampleResultPublished    = "result_published"
	SampleInFlightDelta      = "in_flight_delta" // value +1 / -1
	SampleSlotWait           = "slot_wait"       // value in seconds
	SampleSlotWaitExceeded   = "slot_wait_exceeded"
)

// Sample is one fire-and-forget metric observation
type Sample struct {
	Name  string
	Value float64
	Tags  map[string]string
}

// Sink is the non-blocking front door for pipeline metrics. Record enqueues
// a sample into a bounded buffer; a background goroutine applies samples to
// the underlying Prometheus instruments. When the buffer is full the sample
// is dropped and a drop counter incremented. Metrics loss is acceptable,
// pipeline stalls are not.
type Sink struct {
	ch      chan Sample
	quit    chan struct{}
	metrics *Metrics
	wg      sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	dropped atomic.Int64

	droppedCounter prometheus.Counter
	unknownCounter prometheus.Counter
}

// NewSink creates a sink backed by the registry's core metrics.
// bufferSize <= 0 selects the default of 1024.
func NewSink(registry *MetricsRegistry, bufferSize int) (*Sink, error) {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	s := &Sink{
		ch:      make(chan Sample, bufferSize),
		quit:    make(chan struct{}),
		metrics: registry.CoreMetrics(),
		droppedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nsai",
			Subsystem: "sink",
			Name:      "dropped_samples_total",
			Help:      "Samples dropped because the sink buffer was full",
		}),
		unknownCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nsai",
			Subsystem: "sink",
			Name:      "unknown_samples_total",
			Help:      "Samples with a name the sink dispatcher does not recognize",
		}),
	}

	if err := registry.Register("metric_sink", "dropped_samples_total", s.droppedCounter); err != nil {
		return nil, err
	}
	if err := registry.Register("metric_sink", "unknown_samples_total", s.unknownCounter); err != nil {
		return nil, err
	}

	return s, nil
}

// Start launches the drain goroutine
func (s *Sink) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started {
		return nil
	}
	s.started = true

	s.wg.Add(1)
	go s.drain(ctx)
	return nil
}

// Stop signals the drain goroutine and waits for queued samples to be
// applied. The buffer channel is never closed, so a Record racing with
// Stop falls through to the enqueue and the sample is simply discarded.
func (s *Sink) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.started || s.stopped {
		return nil
	}
	s.stopped = true
	close(s.quit)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return nil // drain goroutine abandoned; remaining samples are lost
	}
}

// Record enqueues a sample without blocking. Safe for concurrent use.
func (s *Sink) Record(name string, value float64, tags map[string]string) {
	s.lifecycleMu.Lock()
	if s.stopped {
		s.lifecycleMu.Unlock()
		s.dropped.Add(1)
		s.droppedCounter.Inc()
		return
	}
	s.lifecycleMu.Unlock()

	select {
	case s.ch <- Sample{Name: name, Value: value, Tags: tags}:
	default:
		s.dropped.Add(1)
		s.droppedCounter.Inc()
	}
}

// Dropped returns the number of samples dropped so far
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// drain applies queued samples until Stop signals or the context ends
func (s *Sink) drain(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			s.flush()
			return
		case sample := <-s.ch:
			s.apply(sample)
		}
	}
}

// flush applies whatever is buffered at shutdown without blocking
func (s *Sink) flush() {
	for {
		select {
		case sample := <-s.ch:
			s.apply(sample)
		default:
			return
		}
	}
}

// apply dispatches one sample onto the core metric set
func (s *Sink) apply(sample Sample) {
	switch sample.Name {
	case SampleEventReceived:
		s.metrics.RecordEventReceived(sample.Tags["subject"])
	case SampleOutcome:
		s.metrics.RecordOutcome(sample.Tags["outcome"])
	case SampleDeadLettered:
		s.metrics.RecordDeadLettered(sample.Tags["stage"], sample.Tags["class"])
	case SampleRetry:
		s.metrics.RecordRetry(sample.Tags["stage"])
	case SampleStageDuration:
		s.metrics.RecordStageDuration(sample.Tags["stage"], secondsToDuration(sample.Value))
	case SampleProcessingDuration:
		s.metrics.RecordProcessingDuration(secondsToDuration(sample.Value))
	case SampleResultPublished:
		s.metrics.RecordResultPublished()
	case SampleInFlightDelta:
		s.metrics.RecordInFlightDelta(sample.Value)
	case SampleSlotWait:
		s.metrics.RecordSlotWait(secondsToDuration(sample.Value))
	case SampleSlotWaitExceeded:
		s.metrics.RecordSlotWaitExceeded()
	default:
		s.unknownCounter.Inc()
	}
}

func secondsToDuration(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
