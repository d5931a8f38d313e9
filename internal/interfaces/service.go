package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/domain"
)

// Service interfaces (Business Logic)

type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	AddLine(ctx context.Context, orderID int64, line OrderLineCommand) (*domain.Order, error)
	RemoveLine(ctx context.Context, orderID, lineID int64) (*domain.Order, error)
	UpdateLineQuantity(ctx context.Context, orderID, lineID int64, quantity int) (*domain.Order, error)
	Transition(ctx context.Context, orderID int64, newStatus domain.Status) (*domain.Order, error)
	ApplyPointsDiscount(ctx context.Context, orderID int64, points int) (*domain.Order, error)
	PreviewPoints(ctx context.Context, orderID int64) (int, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit int) ([]*domain.Order, error)
}

type CreateOrderCommand struct {
	CustomerID *int64
	OrderType  string
	Notes      *string
	Lines      []OrderLineCommand
}

type OrderLineCommand struct {
	ProductID int64
	Quantity  int
	Notes     *string
}

type PaymentService interface {
	RecordPayment(ctx context.Context, orderID int64, amount decimal.Decimal, method domain.PaymentMethod) (*domain.Payment, error)
	// MarkCompleted is idempotent: a second completion signal for an
	// already-completed payment is a no-op that returns success.
	MarkCompleted(ctx context.Context, paymentID int64, transactionRef *string) (*domain.Payment, error)
	MarkFailed(ctx context.Context, paymentID int64) (*domain.Payment, error)
	MarkRefunded(ctx context.Context, paymentID int64) (*domain.Payment, error)
	GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error)
}

type LoyaltyService interface {
	// Award credits the order's earned points to the user exactly once;
	// repeated calls for the same order are no-ops.
	Award(ctx context.Context, userID int64, order *domain.Order) (int, error)
	Bonus(ctx context.Context, userID int64, points int, description string) error
	Redeem(ctx context.Context, userID int64, points int, orderID *int64, description string) error
	Adjust(ctx context.Context, userID int64, delta int, description string) error
	BalanceOf(ctx context.Context, userID int64) (int, error)
	History(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error)
	Summary(ctx context.Context, userID int64) (*PointsSummary, error)
	PointsToCurrency(points int) decimal.Decimal
	CurrencyToPoints(amount decimal.Decimal) int
	// PointsRequiredFor is the redemption-side inverse of PointsToCurrency:
	// the points needed to cover the given amount, rounded up.
	PointsRequiredFor(amount decimal.Decimal) int
}

type PointsSummary struct {
	Balance            int
	LifetimeEarned     int
	CashValue          decimal.Decimal
	PointsToNextReward int
}

type SalesService interface {
	// Fold incorporates one completed order into its day's summary; the
	// returned bool reports whether this call actually folded it.
	Fold(ctx context.Context, order *domain.Order) (bool, error)
	// RunOnce folds every completed order not yet in a summary and returns
	// how many were newly folded.
	RunOnce(ctx context.Context) (int, error)
	SummaryFor(ctx context.Context, date time.Time) (*domain.DailySalesSummary, error)
}
