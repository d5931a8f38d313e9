package interfaces

import (
	"context"
	"time"

	"github.com/bistroroyale/backend/internal/domain"
)

// Event messages the engine emits after successful transitions. Delivery is
// the subscriber's responsibility; the engine does not retry.

type StatusChangedMessage struct {
	OrderNumber string        `json:"order_number"`
	OldStatus   domain.Status `json:"old_status"`
	NewStatus   domain.Status `json:"new_status"`
	Timestamp   time.Time     `json:"timestamp"`
}

type PointsAwardedMessage struct {
	OrderNumber string    `json:"order_number"`
	UserID      int64     `json:"user_id"`
	Points      int       `json:"points"`
	Balance     int       `json:"balance"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentConfirmationMessage is what the external gateway posts onto the
// payment confirmations queue.
type PaymentConfirmationMessage struct {
	PaymentID      int64     `json:"payment_id"`
	TransactionRef *string   `json:"transaction_reference,omitempty"`
	Succeeded      bool      `json:"succeeded"`
	Timestamp      time.Time `json:"timestamp"`
}

type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, msg StatusChangedMessage) error
	PublishPointsAwarded(ctx context.Context, msg PointsAwardedMessage) error
}

type MessageConsumer interface {
	ConsumePaymentConfirmations(ctx context.Context, handler PaymentConfirmationHandler) error
}

type PaymentConfirmationHandler func(ctx context.Context, body []byte) error
