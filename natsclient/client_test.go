package natsclient

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
)

func TestNewClient(t *testing.T) {
	t.Run("requires URL", func(t *testing.T) {
		_, err := NewClient("")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("applies defaults", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)
		assert.Equal(t, "nsai-detector", client.clientName)
		assert.Equal(t, -1, client.maxReconnects)
		assert.Equal(t, StatusDisconnected, client.Status())
		assert.False(t, client.IsHealthy())
	})

	t.Run("applies options", func(t *testing.T) {
		logger := slog.Default()
		client, err := NewClient("nats://localhost:4222",
			WithName("test-client"),
			WithMaxReconnects(5),
			WithReconnectWait(time.Second),
			WithTimeout(2*time.Second),
			WithDrainTimeout(3*time.Second),
			WithCredentials("user", "pass"),
			WithToken("tok"),
			WithLogger(logger),
		)
		require.NoError(t, err)
		assert.Equal(t, "test-client", client.clientName)
		assert.Equal(t, 5, client.maxReconnects)
		assert.Equal(t, time.Second, client.reconnectWait)
		assert.Equal(t, 2*time.Second, client.timeout)
		assert.Equal(t, 3*time.Second, client.drainTimeout)
		assert.Equal(t, "user", client.username)
		assert.Equal(t, "pass", client.password)
		assert.Equal(t, "tok", client.token)
	})

	t.Run("ignores zero durations", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222",
			WithReconnectWait(0),
			WithTimeout(-time.Second),
		)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, client.reconnectWait)
		assert.Equal(t, 5*time.Second, client.timeout)
	})
}

func TestConnectionStatusString(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{ConnectionStatus(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestJetStreamWithoutConnection(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = client.JetStream()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
	assert.True(t, errors.IsTransient(err))
}

func TestPublishWithoutConnection(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	err = client.Publish(context.Background(), "disinfo.results", []byte("data"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
}

func TestPublishResultWithoutConnection(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = client.PublishResult(context.Background(), "disinfo.results", []byte("data"), "result-abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
}

func TestWaitForConnectionTimeout(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = client.WaitForConnection(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConnectionTimeout)
}

func TestCloseWithoutConnection(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.NoError(t, client.Close(context.Background()))
}
