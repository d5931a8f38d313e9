package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadConnection mimics a broker whose TCP connection has dropped: opening
// a channel always fails until Reconnect is called.
type deadConnection struct {
	mu         sync.Mutex
	closed     bool
	reconnects int
}

func (c *deadConnection) Channel() (Channel, error) {
	return nil, errors.New("connection lost")
}

func (c *deadConnection) Close() error { return nil }

func (c *deadConnection) NotifyClose() <-chan *amqp.Error {
	return make(chan *amqp.Error, 1)
}

func (c *deadConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *deadConnection) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnects++
	c.closed = false
	return nil
}

func (c *deadConnection) reconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnects
}

func TestConsumerRedialsDroppedConnection(t *testing.T) {
	conn := &deadConnection{closed: true}
	c := NewConsumer(conn, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := c.ConsumePaymentConfirmations(ctx, func(ctx context.Context, body []byte) error {
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.GreaterOrEqual(t, conn.reconnectCount(), 1)
}
