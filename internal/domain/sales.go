package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySalesSummary is the derived per-day aggregate over completed orders.
// It is extended by folding orders in, never hand-edited, and never
// decremented.
type DailySalesSummary struct {
	ID                int64
	Date              time.Time // calendar date, midnight UTC
	TotalRevenue      decimal.Decimal
	OrderCount        int
	AverageOrderValue decimal.Decimal
	TopProductID      *int64
	UpdatedAt         time.Time
}

// SalesDate normalizes a completion timestamp to its calendar date.
func SalesDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewDailySalesSummary(date time.Time) *DailySalesSummary {
	return &DailySalesSummary{
		Date:              SalesDate(date),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		UpdatedAt:         time.Now(),
	}
}

// Fold adds one completed order's figures to the summary. Fold-once
// semantics per order are enforced by the caller via the folded-order set.
func (s *DailySalesSummary) Fold(order *Order) {
	s.OrderCount++
	s.TotalRevenue = s.TotalRevenue.Add(order.TotalAmount)
	s.AverageOrderValue = s.TotalRevenue.
		Div(decimal.NewFromInt(int64(s.OrderCount))).
		Round(2)
	s.UpdatedAt = time.Now()
}
