package orchestrator

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
	"github.com/hyperpolymath/disinfo-nsai-detector/natsclient"
)

// fetchBatchSize is how many messages one consumer fetch requests
const fetchBatchSize = 16

// JetStreamSource adapts a durable pull consumer to the Source
// interface
type JetStreamSource struct {
	consumer     jetstream.Consumer
	fetchTimeout time.Duration

	mu      sync.Mutex
	pending []jetstream.Msg
}

// NewJetStreamSource creates a source over a pull consumer
func NewJetStreamSource(consumer jetstream.Consumer, fetchTimeout time.Duration) *JetStreamSource {
	return &JetStreamSource{
		consumer:     consumer,
		fetchTimeout: fetchTimeout,
	}
}

// Next implements Source. It serves buffered messages from the last
// fetch before going back to the broker.
func (s *JetStreamSource) Next(ctx context.Context) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		if err := s.fetch(ctx); err != nil {
			return nil, err
		}
	}
	if len(s.pending) == 0 {
		return nil, ErrNoEvents
	}

	msg := s.pending[0]
	s.pending = s.pending[1:]
	return &jsDelivery{msg: msg}, nil
}

// fetch pulls the next batch into the buffer. Callers hold s.mu.
func (s *JetStreamSource) fetch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// An empty batch after the wait elapses is the idle case; Next
	// turns it into ErrNoEvents.
	batch, err := s.consumer.Fetch(fetchBatchSize, jetstream.FetchMaxWait(s.fetchTimeout))
	if err != nil {
		return errors.WrapTransient(err, "JetStreamSource", "fetch", "fetch batch")
	}

	for msg := range batch.Messages() {
		s.pending = append(s.pending, msg)
	}
	if err := batch.Error(); err != nil && len(s.pending) == 0 {
		if stderrors.Is(err, nats.ErrTimeout) {
			return nil
		}
		return errors.WrapTransient(err, "JetStreamSource", "fetch", "drain batch")
	}
	return nil
}

// jsDelivery wraps a JetStream message as a Delivery
type jsDelivery struct {
	msg jetstream.Msg
}

func (d *jsDelivery) Subject() string {
	return d.msg.Subject()
}

func (d *jsDelivery) Data() []byte {
	return d.msg.Data()
}

func (d *jsDelivery) Attempts() uint64 {
	meta, err := d.msg.Metadata()
	if err != nil {
		return 1
	}
	return meta.NumDelivered
}

func (d *jsDelivery) Ack() error {
	return d.msg.Ack()
}

func (d *jsDelivery) Nak(delay time.Duration) error {
	if delay <= 0 {
		return d.msg.Nak()
	}
	return d.msg.NakWithDelay(delay)
}

func (d *jsDelivery) Term() error {
	return d.msg.Term()
}

// JetStreamPublisher adapts the NATS client to the Publisher interface
type JetStreamPublisher struct {
	client *natsclient.Client
}

// NewJetStreamPublisher creates a publisher over a connected client
func NewJetStreamPublisher(client *natsclient.Client) *JetStreamPublisher {
	return &JetStreamPublisher{client: client}
}

// Publish implements Publisher
func (p *JetStreamPublisher) Publish(
	ctx context.Context, subject string, data []byte, msgID string,
) error {
	_, err := p.client.PublishResult(ctx, subject, data, msgID)
	return err
}
