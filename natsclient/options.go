package natsclient

import (
	"log/slog"
	"time"

	"github.com/hyperpolymath/disinfo-nsai-detector/metric"
)

// ClientOption configures the Client
type ClientOption func(*Client)

// WithName sets the client name reported to the NATS server
func WithName(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.clientName = name
		}
	}
}

// WithMaxReconnects sets the reconnection attempt limit (-1 for unlimited)
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) {
		c.maxReconnects = n
	}
}

// WithReconnectWait sets the delay between reconnection attempts
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.reconnectWait = d
		}
	}
}

// WithTimeout sets the connection dial timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDrainTimeout bounds how long Close waits for in-flight messages
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.drainTimeout = d
		}
	}
}

// WithCredentials sets username and password authentication
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken sets token authentication
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics wires connection status and reconnect counts into metrics
func WithMetrics(m *metric.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}
