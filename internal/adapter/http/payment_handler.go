package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

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

type RecordPaymentRequest struct {
	OrderID int64           `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method"`
}

type CompletePaymentRequest struct {
	TransactionRef *string `json:"transaction_reference,omitempty"`
}

type PaymentResponse struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	TransactionRef *string         `json:"transaction_reference,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             payment.ID,
		OrderID:        payment.OrderID,
		Amount:         payment.Amount,
		Method:         string(payment.Method),
		Status:         string(payment.Status),
		TransactionRef: payment.TransactionRef,
		CreatedAt:      payment.CreatedAt,
	}
}

func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), req.OrderID, req.Amount, domain.PaymentMethod(req.Method))
	if err != nil {
		h.logger.Error("payment_record_failed", "Failed to record payment", "", map[string]interface{}{
			"order_id": req.OrderID,
		}, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (h *PaymentHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req CompletePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.service.MarkCompleted(r.Context(), paymentID, req.TransactionRef)
	if err != nil {
		h.logger.Error("payment_completion_failed", "Failed to complete payment", "", map[string]interface{}{
			"payment_id": paymentID,
		}, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	payment, err := h.service.MarkFailed(r.Context(), paymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	payments, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]PaymentResponse, len(payments))
	for i, payment := range payments {
		resp[i] = toPaymentResponse(payment)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) GetByTransactionRef(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.GetByTransactionRef(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) MarkRefunded(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	payment, err := h.service.MarkRefunded(r.Context(), paymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}
