package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/hyperpolymath/disinfo-nsai-detector/rules"
)

// ErrNoEvents is returned by Source.Next when a fetch window elapses
// without any event arriving.
var ErrNoEvents = errors.New("no events available")

// Delivery is one event received from the stream. Exactly one of Ack,
// Nak, or Term should be called; leaving a delivery untouched lets the
// broker redeliver it after its ack wait elapses.
type Delivery interface {
	// Subject is the subject the event arrived on.
	Subject() string

	// Data is the raw event payload.
	Data() []byte

	// Attempts is the broker's delivery count for this event,
	// starting at 1.
	Attempts() uint64

	// Ack acknowledges successful processing.
	Ack() error

	// Nak requests redelivery after the given delay.
	Nak(delay time.Duration) error

	// Term tells the broker to stop redelivering this event.
	Term() error
}

// Source yields deliveries from the stream
type Source interface {
	// Next returns the next delivery. It blocks until an event
	// arrives, the fetch window elapses (returning ErrNoEvents), or
	// ctx is done.
	Next(ctx context.Context) (Delivery, error)
}

// Publisher publishes payloads with broker-side deduplication
type Publisher interface {
	// Publish sends data to subject with the given deduplication
	// message ID and waits for the broker's acknowledgment.
	Publish(ctx context.Context, subject string, data []byte, msgID string) error
}

// ContextProvider supplies ground facts describing an event's source,
// consulted once per event before rule evaluation.
type ContextProvider interface {
	SourceFacts(ctx context.Context, sourceID string) ([]rules.Atom, error)
}

// StaticContext is a ContextProvider backed by a fixed trusted-source
// list. Sources on the list yield trusted(s), everything else yields
// untrusted(s).
type StaticContext struct {
	trusted map[string]bool
}

// NewStaticContext creates a provider from a trusted source list
func NewStaticContext(trustedSources []string) *StaticContext {
	trusted := make(map[string]bool, len(trustedSources))
	for _, source := range trustedSources {
		trusted[source] = true
	}
	return &StaticContext{trusted: trusted}
}

// SourceFacts implements ContextProvider
func (s *StaticContext) SourceFacts(_ context.Context, sourceID string) ([]rules.Atom, error) {
	predicate := rules.PredUntrusted
	if s.trusted[sourceID] {
		predicate = rules.PredTrusted
	}
	return []rules.Atom{{
		Predicate: predicate,
		Args:      []rules.Term{{Value: sourceID}},
	}}, nil
}
