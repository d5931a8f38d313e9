package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type OrderHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

type CreateOrderRequest struct {
	CustomerID *int64             `json:"customer_id,omitempty"`
	OrderType  string             `json:"order_type"`
	Notes      *string            `json:"notes,omitempty"`
	Lines      []OrderLineRequest `json:"lines"`
}

type OrderLineRequest struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Notes     *string `json:"notes,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type DiscountRequest struct {
	Points int `json:"points"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type OrderResponse struct {
	ID             int64               `json:"id"`
	Number         string              `json:"number"`
	CustomerID     *int64              `json:"customer_id,omitempty"`
	OrderType      string              `json:"order_type"`
	Status         string              `json:"status"`
	Lines          []OrderLineResponse `json:"lines"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	PointsEarned   int                 `json:"points_earned"`
	PointsRedeemed int                 `json:"points_redeemed"`
	Notes          *string             `json:"notes,omitempty"`
	OrderedAt      time.Time           `json:"ordered_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

type OrderLineResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Notes     *string         `json:"notes,omitempty"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = OrderLineResponse{
			ID:        line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			TaxRate:   line.TaxRate,
			Subtotal:  line.Subtotal,
			Notes:     line.Notes,
		}
	}
	return OrderResponse{
		ID:             order.ID,
		Number:         order.Number,
		CustomerID:     order.CustomerID,
		OrderType:      string(order.Type),
		Status:         string(order.Status),
		Lines:          lines,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		PointsEarned:   order.PointsEarned,
		PointsRedeemed: order.PointsRedeemed,
		Notes:          order.Notes,
		OrderedAt:      order.OrderedAt,
		CompletedAt:    order.CompletedAt,
	}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	lines := make([]interfaces.OrderLineCommand, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = interfaces.OrderLineCommand{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Notes:     line.Notes,
		}
	}

	cmd := interfaces.CreateOrderCommand{
		CustomerID: req.CustomerID,
		OrderType:  strings.TrimSpace(req.OrderType),
		Notes:      req.Notes,
		Lines:      lines,
	}

	order, err := h.service.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", "", nil, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req OrderLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.service.AddLine(r.Context(), orderID, interfaces.OrderLineCommand{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}

	order, err := h.service.RemoveLine(r.Context(), orderID, lineID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) UpdateLineQuantity(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.service.UpdateLineQuantity(r.Context(), orderID, lineID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.service.Transition(r.Context(), orderID, domain.Status(req.Status))
	if err != nil {
		h.logger.Error("status_transition_failed", "Failed to transition order", "", map[string]interface{}{
			"order_id":   orderID,
			"new_status": req.Status,
		}, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.service.ApplyPointsDiscount(r.Context(), orderID, req.Points)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	orders, err := h.service.ListByCustomer(r.Context(), customerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, order := range orders {
		resp[i] = toOrderResponse(order)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) PreviewPoints(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	points, err := h.service.PreviewPoints(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"points": points})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}
