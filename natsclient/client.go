package natsclient

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
	"github.com/hyperpolymath/disinfo-nsai-detector/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Client manages a NATS connection and its JetStream context
type Client struct {
	url        string
	clientName string

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream

	status     atomic.Value // ConnectionStatus
	reconnects atomic.Int32

	// Connection options
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	pingInterval  time.Duration

	// Authentication
	username string
	password string
	token    string

	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewClient creates a new NATS client for the given URL
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"Client", "NewClient", "validate NATS URL")
	}

	c := &Client{
		url:           url,
		clientName:    "nsai-detector",
		maxReconnects: -1, // reconnect forever
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
		pingInterval:  30 * time.Second,
		logger:        slog.Default().With("component", "natsclient"),
	}
	c.status.Store(StatusDisconnected)

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// URL returns the configured NATS URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return c.status.Load().(ConnectionStatus)
}

// IsHealthy reports whether the connection is established
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Reconnects returns the number of reconnections since Connect
func (c *Client) Reconnects() int32 {
	return c.reconnects.Load()
}

// Connect establishes the NATS connection and JetStream context
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.IsConnected() {
		return nil
	}

	c.setStatus(StatusConnecting)

	conn, err := nats.Connect(c.url, c.connectionOptions()...)
	if err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "Client", "Connect", "dial NATS")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		c.setStatus(StatusDisconnected)
		return errors.WrapFatal(err, "Client", "Connect", "create JetStream context")
	}

	c.conn = conn
	c.js = js
	c.setStatus(StatusConnected)

	c.logger.Info("Connected to NATS", "url", c.url)
	return nil
}

// WaitForConnection blocks until the connection is healthy or ctx expires
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.WrapTransient(errors.ErrConnectionTimeout,
				"Client", "WaitForConnection", "wait for NATS connection")
		case <-ticker.C:
		}
	}
}

// Close drains and closes the connection
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- c.conn.Drain()
	}()

	timer := time.NewTimer(c.drainTimeout)
	defer timer.Stop()

	select {
	case err := <-drainDone:
		if err != nil {
			c.conn.Close()
		}
	case <-timer.C:
		c.conn.Close()
	case <-ctx.Done():
		c.conn.Close()
	}

	c.conn = nil
	c.js = nil
	c.token = ""
	c.password = ""
	c.setStatus(StatusDisconnected)

	c.logger.Info("NATS connection closed")
	return nil
}

// JetStream returns the JetStream context
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.js == nil {
		return nil, errors.WrapTransient(errors.ErrNoConnection,
			"Client", "JetStream", "get JetStream context")
	}
	return c.js, nil
}

// EnsureStream creates or updates a JetStream stream
func (c *Client) EnsureStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	stream, err := js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "EnsureStream", "create or update stream")
	}

	return stream, nil
}

// EnsureConsumer creates or updates a durable consumer on a stream
func (c *Client) EnsureConsumer(
	ctx context.Context, streamName string, cfg jetstream.ConsumerConfig,
) (jetstream.Consumer, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, streamName, cfg)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrStreamNotFound) {
			return nil, errors.WrapTransient(errors.ErrStreamNotFound,
				"Client", "EnsureConsumer", "look up stream")
		}
		return nil, errors.WrapTransient(err, "Client", "EnsureConsumer", "create or update consumer")
	}

	return consumer, nil
}

// Publish publishes a message to a core NATS subject (no JetStream ack)
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.WrapTransient(errors.ErrNoConnection, "Client", "Publish", "check connection")
	}

	return conn.Publish(subject, data)
}

// PublishResult publishes to a JetStream subject with a deduplication
// message ID and waits for the broker's durable acknowledgment.
func (c *Client) PublishResult(
	ctx context.Context, subject string, data []byte, msgID string,
) (*jetstream.PubAck, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	ack, err := js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "PublishResult", "publish with msg ID")
	}

	return ack, nil
}

// setStatus updates the status and the NATS gauge if metrics are configured
func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(status == StatusConnected)
	}
}

// connectionOptions builds the nats.Option list from client settings
func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.timeout),
		nats.PingInterval(c.pingInterval),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.setStatus(StatusReconnecting)
			c.logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.reconnects.Add(1)
			c.setStatus(StatusConnected)
			if c.metrics != nil {
				c.metrics.RecordNATSReconnect()
			}
			c.logger.Info("NATS reconnected", "reconnects", c.reconnects.Load())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.setStatus(StatusDisconnected)
			c.logger.Info("NATS connection closed by server")
		}),
	}

	if c.username != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}

	return opts
}
