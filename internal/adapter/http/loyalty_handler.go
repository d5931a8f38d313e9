package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type LoyaltyHandler struct {
	service interfaces.LoyaltyService
	logger  logger.Logger
}

func NewLoyaltyHandler(service interfaces.LoyaltyService, logger logger.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		service: service,
		logger:  logger,
	}
}

type BonusRequest struct {
	Points      int    `json:"points"`
	Description string `json:"description"`
}

type AdjustRequest struct {
	Delta       int    `json:"delta"`
	Description string `json:"description"`
}

type LedgerEntryResponse struct {
	ID          int64     `json:"id"`
	OrderID     *int64    `json:"order_id,omitempty"`
	Kind        string    `json:"kind"`
	Points      int       `json:"points"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type PointsSummaryResponse struct {
	Balance            int             `json:"balance"`
	LifetimeEarned     int             `json:"lifetime_earned"`
	CashValue          decimal.Decimal `json:"cash_value"`
	PointsToNextReward int             `json:"points_to_next_reward"`
}

func (h *LoyaltyHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	balance, err := h.service.BalanceOf(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func (h *LoyaltyHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]LedgerEntryResponse, len(entries))
	for i, entry := range entries {
		resp[i] = LedgerEntryResponse{
			ID:          entry.ID,
			OrderID:     entry.OrderID,
			Kind:        string(entry.Kind),
			Points:      entry.Points,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LoyaltyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PointsSummaryResponse{
		Balance:            summary.Balance,
		LifetimeEarned:     summary.LifetimeEarned,
		CashValue:          summary.CashValue,
		PointsToNextReward: summary.PointsToNextReward,
	})
}

func (h *LoyaltyHandler) Bonus(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req BonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Points <= 0 {
		writeError(w, &domain.ValidationError{Field: "points", Reason: "must be greater than zero"})
		return
	}

	if err := h.service.Bonus(r.Context(), userID, req.Points, req.Description); err != nil {
		h.logger.Error("bonus_failed", "Failed to grant bonus points", "", map[string]interface{}{
			"user_id": userID,
		}, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LoyaltyHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.service.Adjust(r.Context(), userID, req.Delta, req.Description); err != nil {
		h.logger.Error("adjustment_failed", "Failed to adjust points", "", map[string]interface{}{
			"user_id": userID,
		}, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
