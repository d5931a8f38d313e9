package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type SalesHandler struct {
	service interfaces.SalesService
	logger  logger.Logger
}

func NewSalesHandler(service interfaces.SalesService, logger logger.Logger) *SalesHandler {
	return &SalesHandler{
		service: service,
		logger:  logger,
	}
}

type SalesSummaryResponse struct {
	Date              string          `json:"date"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	OrderCount        int             `json:"order_count"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	TopProductID      *int64          `json:"top_product_id,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (h *SalesHandler) SummaryFor(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid date, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.service.SummaryFor(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *SalesHandler) RunAggregation(w http.ResponseWriter, r *http.Request) {
	folded, err := h.service.RunOnce(r.Context())
	if err != nil {
		h.logger.Error("aggregation_failed", "Failed to run sales aggregation", "", nil, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"folded": folded})
}

func toSummaryResponse(summary *domain.DailySalesSummary) SalesSummaryResponse {
	return SalesSummaryResponse{
		Date:              summary.Date.Format("2006-01-02"),
		TotalRevenue:      summary.TotalRevenue,
		OrderCount:        summary.OrderCount,
		AverageOrderValue: summary.AverageOrderValue,
		TopProductID:      summary.TopProductID,
		UpdatedAt:         summary.UpdatedAt,
	}
}
