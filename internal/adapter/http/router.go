package http

import (
	"net/http"

	"github.com/bistroroyale/backend/internal/adapter/logger"
)

// NewRouter wires every handler onto a mux wrapped in logging and recovery
// middleware.
func NewRouter(
	orders *OrderHandler,
	payments *PaymentHandler,
	loyalty *LoyaltyHandler,
	sales *SalesHandler,
	log logger.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", orders.CreateOrder)
	mux.HandleFunc("GET /orders/{number}", orders.GetByNumber)
	mux.HandleFunc("POST /orders/{id}/lines", orders.AddLine)
	mux.HandleFunc("PATCH /orders/{id}/lines/{lineID}", orders.UpdateLineQuantity)
	mux.HandleFunc("DELETE /orders/{id}/lines/{lineID}", orders.RemoveLine)
	mux.HandleFunc("POST /orders/{id}/status", orders.Transition)
	mux.HandleFunc("POST /orders/{id}/discount", orders.ApplyDiscount)
	mux.HandleFunc("GET /orders/{id}/points-preview", orders.PreviewPoints)
	mux.HandleFunc("GET /orders/{id}/payments", payments.ListByOrder)
	mux.HandleFunc("GET /customers/{userID}/orders", orders.ListByCustomer)

	mux.HandleFunc("POST /payments", payments.RecordPayment)
	mux.HandleFunc("GET /payments/ref/{ref}", payments.GetByTransactionRef)
	mux.HandleFunc("POST /payments/{id}/complete", payments.MarkCompleted)
	mux.HandleFunc("POST /payments/{id}/fail", payments.MarkFailed)
	mux.HandleFunc("POST /payments/{id}/refund", payments.MarkRefunded)

	mux.HandleFunc("GET /loyalty/{userID}/balance", loyalty.Balance)
	mux.HandleFunc("GET /loyalty/{userID}/history", loyalty.History)
	mux.HandleFunc("GET /loyalty/{userID}/summary", loyalty.Summary)
	mux.HandleFunc("POST /loyalty/{userID}/bonus", loyalty.Bonus)
	mux.HandleFunc("POST /loyalty/{userID}/adjust", loyalty.Adjust)

	mux.HandleFunc("GET /sales/{date}", sales.SummaryFor)
	mux.HandleFunc("POST /sales/aggregate", sales.RunAggregation)

	var handler http.Handler = mux
	handler = LoggingMiddleware(log)(handler)
	handler = RecoveryMiddleware(log)(handler)
	return handler
}
