package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/domain"
)

// Repository interfaces (Adapter/Postgres, Adapter/Memory)

type OrderRepository interface {
	// Create persists the order and its lines. A duplicate order number
	// surfaces as a domain.ConcurrencyConflictError.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	// Update persists the order row and replaces its line set.
	Update(ctx context.Context, order *domain.Order) error
	ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit int) ([]*domain.Order, error)
	// CountForDate counts orders created on the given calendar date; the
	// next daily order-number sequence is this count plus one.
	CountForDate(ctx context.Context, date time.Time) (int, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	ListByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error)
	// HasEarnedForOrder reports whether an earned entry already references
	// the order; it is the double-credit guard for Award.
	HasEarnedForOrder(ctx context.Context, orderID int64) (bool, error)
	GetAccount(ctx context.Context, userID int64) (*domain.PointsAccount, error)
	SaveAccount(ctx context.Context, account *domain.PointsAccount) error
}

type SalesRepository interface {
	GetByDate(ctx context.Context, date time.Time) (*domain.DailySalesSummary, error)
	Save(ctx context.Context, summary *domain.DailySalesSummary) error
	// IsFolded/MarkFolded track which order ids already entered a day's
	// summary, making Fold idempotent.
	IsFolded(ctx context.Context, date time.Time, orderID int64) (bool, error)
	MarkFolded(ctx context.Context, date time.Time, orderID int64) error
	// AddProductQuantities accumulates per-product sold quantities for the
	// day; TopProductOfDay reads back the current best seller.
	AddProductQuantities(ctx context.Context, date time.Time, quantities map[int64]int) error
	TopProductOfDay(ctx context.Context, date time.Time) (*int64, error)
}

// ProductCatalog is the narrow view of the menu the engine needs at order
// creation and line-add time.
type ProductCatalog interface {
	IsOrderable(ctx context.Context, productID int64) (bool, error)
	PriceOf(ctx context.Context, productID int64) (decimal.Decimal, error)
	TaxRateOf(ctx context.Context, productID int64) (decimal.Decimal, error)
}

// UnitOfWork runs fn inside a single atomic transaction: either everything
// fn persists becomes visible, or none of it. Nested calls join the
// enclosing transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
