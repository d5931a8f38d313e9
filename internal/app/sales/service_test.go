package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/adapter/memory"
	"github.com/bistroroyale/backend/internal/domain"
)

func newFixture(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewService(store.Sales(), store.Orders(), store.UnitOfWork(), logger.New("test"))
	return svc, store
}

type lineSpec struct {
	productID int64
	quantity  int
}

func storeCompletedOrder(t *testing.T, store *memory.Store, total string, completedAt time.Time, lines ...lineSpec) *domain.Order {
	t.Helper()

	order := &domain.Order{
		Number:      "BR-20250131-001",
		Type:        domain.OrderTypeTakeout,
		Status:      domain.StatusCompleted,
		TotalAmount: decimal.RequireFromString(total),
		OrderedAt:   completedAt,
		CompletedAt: &completedAt,
	}
	for _, l := range lines {
		order.Lines = append(order.Lines, domain.OrderLine{ProductID: l.productID, Quantity: l.quantity})
	}
	order.Number = order.Number + "-" + completedAt.Format("150405.000000000")
	require.NoError(t, store.Orders().Create(context.Background(), order))
	return order
}

func TestFoldRequiresCompletedOrder(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Fold(context.Background(), &domain.Order{Status: domain.StatusPending})
	var serr *domain.InvalidStateError
	require.ErrorAs(t, err, &serr)
}

func TestFoldAggregates(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()
	day := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	first := storeCompletedOrder(t, store, "1000", day, lineSpec{10, 3}, lineSpec{20, 1})
	second := storeCompletedOrder(t, store, "500.50", day.Add(time.Hour), lineSpec{20, 1})

	folded, err := svc.Fold(ctx, first)
	require.NoError(t, err)
	assert.True(t, folded)
	folded, err = svc.Fold(ctx, second)
	require.NoError(t, err)
	assert.True(t, folded)

	summary, err := svc.SummaryFor(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OrderCount)
	assert.True(t, summary.TotalRevenue.Equal(decimal.RequireFromString("1500.50")))
	assert.True(t, summary.AverageOrderValue.Equal(decimal.RequireFromString("750.25")))
	require.NotNil(t, summary.TopProductID)
	assert.Equal(t, int64(10), *summary.TopProductID)
}

func TestFoldIdempotent(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()
	day := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	order := storeCompletedOrder(t, store, "1000", day, lineSpec{10, 1})

	folded, err := svc.Fold(ctx, order)
	require.NoError(t, err)
	assert.True(t, folded)

	folded, err = svc.Fold(ctx, order)
	require.NoError(t, err)
	assert.False(t, folded)

	summary, err := svc.SummaryFor(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OrderCount)
	assert.True(t, summary.TotalRevenue.Equal(decimal.NewFromInt(1000)))
}

func TestFoldSplitsByCompletionDate(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	jan := time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 1, 0, 0, 0, time.UTC)

	_, err := svc.Fold(ctx, storeCompletedOrder(t, store, "100", jan, lineSpec{10, 1}))
	require.NoError(t, err)
	_, err = svc.Fold(ctx, storeCompletedOrder(t, store, "200", feb, lineSpec{10, 1}))
	require.NoError(t, err)

	janSummary, err := svc.SummaryFor(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 1, janSummary.OrderCount)

	febSummary, err := svc.SummaryFor(ctx, feb)
	require.NoError(t, err)
	assert.True(t, febSummary.TotalRevenue.Equal(decimal.NewFromInt(200)))
}

func TestRunOnce(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()
	day := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	already := storeCompletedOrder(t, store, "100", day, lineSpec{10, 1})
	_, err := svc.Fold(ctx, already)
	require.NoError(t, err)

	storeCompletedOrder(t, store, "200", day.Add(time.Minute), lineSpec{10, 1})
	storeCompletedOrder(t, store, "300", day.Add(2*time.Minute), lineSpec{20, 2})

	// Pending orders are never aggregated.
	pending := &domain.Order{Number: "BR-20250131-900", Status: domain.StatusPending, TotalAmount: decimal.NewFromInt(999), OrderedAt: day}
	require.NoError(t, store.Orders().Create(ctx, pending))

	count, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	summary, err := svc.SummaryFor(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.OrderCount)
	assert.True(t, summary.TotalRevenue.Equal(decimal.NewFromInt(600)))

	// A second run finds nothing new.
	count, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSummaryForUnknownDate(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.SummaryFor(context.Background(), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrSummaryNotFound)
}
