package amqp

import (
	"context"
	"encoding/json"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/interfaces"
)

// PaymentHandler applies gateway confirmation messages to recorded payments.
type PaymentHandler struct {
	service interfaces.PaymentService
	logger  logger.Logger
}

func NewPaymentHandler(service interfaces.PaymentService, logger logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

func (h *PaymentHandler) HandleConfirmation(ctx context.Context, body []byte) error {
	var msg interfaces.PaymentConfirmationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse payment confirmation", "", nil, err)
		return err
	}

	if msg.Succeeded {
		_, err := h.service.MarkCompleted(ctx, msg.PaymentID, msg.TransactionRef)
		return err
	}

	_, err := h.service.MarkFailed(ctx, msg.PaymentID)
	return err
}
