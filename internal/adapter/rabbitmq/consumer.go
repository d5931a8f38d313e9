package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bistroroyale/backend/internal/interfaces"
)

const (
	confirmationsQueue    = "payment_confirmations"
	confirmationsDLX      = "payment_confirmations_dlq"
	confirmationsDLQQueue = "payment_confirmations_dlq_queue"
)

type consumer struct {
	conn     Connection
	prefetch int
}

func NewConsumer(conn Connection, prefetch int) interfaces.MessageConsumer {
	return &consumer{conn: conn, prefetch: prefetch}
}

func (c *consumer) ConsumePaymentConfirmations(ctx context.Context, handler interfaces.PaymentConfirmationHandler) error {
	for {
		err := c.consumeWithReconnect(ctx, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err == nil {
			return nil
		}

		log.Printf("Payment confirmations consumer disconnected: %v. Reconnecting in 5 seconds...", err)

		// Reopening a channel is not enough when the TCP connection itself
		// died; re-dial before the next attempt.
		if c.conn.IsClosed() {
			if rerr := c.conn.Reconnect(); rerr != nil {
				log.Printf("Failed to re-dial RabbitMQ: %v", rerr)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *consumer) consumeWithReconnect(ctx context.Context, handler interfaces.PaymentConfirmationHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := c.setupConfirmationsInfrastructure(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(confirmationsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			if err := handler(ctx, msg.Body); err != nil {
				// Bad confirmations go to the DLQ, never back on the queue.
				msg.Nack(false, false)
			} else {
				msg.Ack(false)
			}
		}
	}
}

func (c *consumer) setupConfirmationsInfrastructure(ch Channel) error {
	if err := ch.ExchangeDeclare(confirmationsDLX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(confirmationsDLQQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	if err := ch.QueueBind(confirmationsDLQQueue, "#", confirmationsDLX, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": confirmationsDLX,
	}

	if _, err := ch.QueueDeclare(confirmationsQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare confirmations queue: %w", err)
	}

	return nil
}
