package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/adapter/memory"
	"github.com/bistroroyale/backend/internal/app/loyalty"
	"github.com/bistroroyale/backend/internal/config"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type stubPublisher struct {
	mu            sync.Mutex
	statusChanges []interfaces.StatusChangedMessage
	awards        []interfaces.PointsAwardedMessage
}

func (p *stubPublisher) PublishStatusChanged(ctx context.Context, msg interfaces.StatusChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanges = append(p.statusChanges, msg)
	return nil
}

func (p *stubPublisher) PublishPointsAwarded(ctx context.Context, msg interfaces.PointsAwardedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awards = append(p.awards, msg)
	return nil
}

type fixture struct {
	store     *memory.Store
	publisher *stubPublisher
	loyalty   *loyalty.Service
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.SeedProduct(10, decimal.NewFromInt(500), decimal.Zero, true)
	store.SeedProduct(20, decimal.NewFromInt(1000), decimal.Zero, true)
	store.SeedProduct(30, decimal.NewFromInt(100), decimal.RequireFromString("0.1"), true)
	store.SeedProduct(40, decimal.NewFromInt(200), decimal.Zero, false)
	store.SeedProduct(50, decimal.NewFromInt(1), decimal.Zero, true)

	publisher := &stubPublisher{}
	lgr := logger.New("test")

	loyaltySvc := loyalty.NewService(store.Ledger(), publisher, store.UnitOfWork(), lgr, config.LoyaltyConfig{
		PointsPerCurrencyUnit: 10,
		PointsToCurrencyRate:  100,
		RewardMilestone:       1000,
	})

	service := NewService(store.Orders(), store.Catalog(), loyaltySvc, publisher, store.UnitOfWork(), lgr, config.OrdersConfig{
		NumberPrefix:     "BR",
		MaxNumberRetries: 3,
	})

	return &fixture{store: store, publisher: publisher, loyalty: loyaltySvc, service: service}
}

func lineCmd(productID int64, quantity int) interfaces.OrderLineCommand {
	return interfaces.OrderLineCommand{ProductID: productID, Quantity: quantity}
}

func (f *fixture) createOrder(t *testing.T, customerID *int64, lines ...interfaces.OrderLineCommand) *domain.Order {
	t.Helper()
	order, err := f.service.CreateOrder(context.Background(), interfaces.CreateOrderCommand{
		CustomerID: customerID,
		OrderType:  "dine_in",
		Lines:      lines,
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) completeOrder(t *testing.T, orderID int64) *domain.Order {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.Transition(ctx, orderID, domain.StatusPreparing)
	require.NoError(t, err)
	_, err = f.service.Transition(ctx, orderID, domain.StatusReady)
	require.NoError(t, err)
	order, err := f.service.Transition(ctx, orderID, domain.StatusCompleted)
	require.NoError(t, err)
	return order
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	order := f.createOrder(t, nil, lineCmd(10, 2), lineCmd(20, 1))

	wantNumber := fmt.Sprintf("BR-%s-001", time.Now().UTC().Format("20060102"))
	assert.Equal(t, wantNumber, order.Number)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2000)), "total = %s", order.TotalAmount)
	assert.Len(t, order.Lines, 2)
	// Prices are snapshotted from the catalog.
	assert.True(t, order.Lines[0].UnitPrice.Equal(decimal.NewFromInt(500)))
}

func TestCreateOrderSequentialNumbers(t *testing.T) {
	f := newFixture(t)

	first := f.createOrder(t, nil, lineCmd(10, 1))
	second := f.createOrder(t, nil, lineCmd(10, 1))

	date := time.Now().UTC().Format("20060102")
	assert.Equal(t, fmt.Sprintf("BR-%s-001", date), first.Number)
	assert.Equal(t, fmt.Sprintf("BR-%s-002", date), second.Number)
}

func TestCreateOrderUnavailableProducts(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), interfaces.CreateOrderCommand{
		OrderType: "takeout",
		Lines:     []interfaces.OrderLineCommand{lineCmd(10, 1), lineCmd(40, 1), lineCmd(99, 1)},
	})

	var ierr *domain.InvalidItemsError
	require.ErrorAs(t, err, &ierr)
	assert.ElementsMatch(t, []int64{40, 99}, ierr.ProductIDs)
}

func TestCreateOrderInvalidType(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), interfaces.CreateOrderCommand{
		OrderType: "drive_thru",
		Lines:     []interfaces.OrderLineCommand{lineCmd(10, 1)},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "order_type", verr.Field)
}

func TestCreateOrderNumberConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createOrder(t, nil, lineCmd(10, 1))

	// Occupy the next sequence number without contributing to today's count,
	// so every retry recomputes the same colliding number.
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	blocker, err := domain.NewOrder(nil, domain.OrderTypeTakeout, []domain.OrderLine{
		{ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(500), TaxRate: decimal.Zero},
	})
	require.NoError(t, err)
	blocker.Number = fmt.Sprintf("BR-%s-002", time.Now().UTC().Format("20060102"))
	blocker.OrderedAt = yesterday
	require.NoError(t, f.store.Orders().Create(ctx, blocker))

	_, err = f.service.CreateOrder(ctx, interfaces.CreateOrderCommand{
		OrderType: "takeout",
		Lines:     []interfaces.OrderLineCommand{lineCmd(10, 1)},
	})

	var cerr *domain.ConcurrencyConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestCreateOrderConcurrentDistinctNumbers(t *testing.T) {
	f := newFixture(t)

	// Each lost race costs one retry, so the budget covers every worker
	// losing to all the others.
	f.service = NewService(f.store.Orders(), f.store.Catalog(), f.loyalty, f.publisher, f.store.UnitOfWork(), logger.New("test"), config.OrdersConfig{
		NumberPrefix:     "BR",
		MaxNumberRetries: 10,
	})

	const workers = 8
	var wg sync.WaitGroup
	numbers := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := f.service.CreateOrder(context.Background(), interfaces.CreateOrderCommand{
				OrderType: "takeout",
				Lines:     []interfaces.OrderLineCommand{lineCmd(10, 1)},
			})
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = order.Number
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, workers)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[numbers[i]], "order number %s assigned twice", numbers[i])
		seen[numbers[i]] = true
	}
}

func TestTransitionAwardsPointsOnCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := int64(7)

	order := f.createOrder(t, &customerID, lineCmd(10, 2), lineCmd(20, 1))
	completed := f.completeOrder(t, order.ID)

	assert.Equal(t, domain.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, 20000, completed.PointsEarned)

	balance, err := f.loyalty.BalanceOf(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 20000, balance)

	entries, err := f.loyalty.History(ctx, customerID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryEarned, entries[0].Kind)
	require.NotNil(t, entries[0].OrderID)
	assert.Equal(t, order.ID, *entries[0].OrderID)

	assert.Len(t, f.publisher.statusChanges, 3)
	require.Len(t, f.publisher.awards, 1)
	assert.Equal(t, 20000, f.publisher.awards[0].Points)
}

func TestTransitionWalkInCompletionSkipsAward(t *testing.T) {
	f := newFixture(t)

	order := f.createOrder(t, nil, lineCmd(10, 1))
	completed := f.completeOrder(t, order.ID)

	assert.Equal(t, 0, completed.PointsEarned)
	assert.Empty(t, f.publisher.awards)
}

func TestTransitionRejectedFromTerminalState(t *testing.T) {
	f := newFixture(t)

	order := f.createOrder(t, nil, lineCmd(10, 1))
	f.completeOrder(t, order.ID)

	_, err := f.service.Transition(context.Background(), order.ID, domain.StatusPreparing)
	var terr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.StatusCompleted, terr.From)
}

func TestLineMutationsRecalculateTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, nil, lineCmd(10, 1))

	order, err := f.service.AddLine(ctx, order.ID, lineCmd(30, 2))
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(720)), "total = %s", order.TotalAmount)

	order, err = f.service.UpdateLineQuantity(ctx, order.ID, order.Lines[0].ID, 3)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1720)), "total = %s", order.TotalAmount)

	order, err = f.service.RemoveLine(ctx, order.ID, order.Lines[1].ID)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1500)), "total = %s", order.TotalAmount)
}

func TestAddLineRejectedOnCompletedOrder(t *testing.T) {
	f := newFixture(t)

	order := f.createOrder(t, nil, lineCmd(10, 1))
	f.completeOrder(t, order.ID)

	_, err := f.service.AddLine(context.Background(), order.ID, lineCmd(20, 1))
	var serr *domain.InvalidStateError
	require.ErrorAs(t, err, &serr)
}

func TestApplyPointsDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := int64(7)

	require.NoError(t, f.loyalty.Bonus(ctx, customerID, 10000, "signup bonus"))

	order := f.createOrder(t, &customerID, lineCmd(10, 2), lineCmd(20, 1))

	order, err := f.service.ApplyPointsDiscount(ctx, order.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, 5000, order.PointsRedeemed)
	assert.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(50)), "discount = %s", order.DiscountAmount)

	balance, err := f.loyalty.BalanceOf(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 5000, balance)

	// Points preview reflects the discounted amount.
	points, err := f.service.PreviewPoints(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 19500, points)

	// Completion then earns on the amount actually paid.
	completed := f.completeOrder(t, order.ID)
	assert.Equal(t, 19500, completed.PointsEarned)
}

func TestApplyPointsDiscountInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := int64(7)

	require.NoError(t, f.loyalty.Bonus(ctx, customerID, 50, "signup bonus"))

	order := f.createOrder(t, &customerID, lineCmd(10, 2))

	_, err := f.service.ApplyPointsDiscount(ctx, order.ID, 80)
	var perr *domain.InsufficientPointsError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 80, perr.Requested)
	assert.Equal(t, 50, perr.Balance)

	// Failed redemption leaves order and balance untouched.
	balance, err := f.loyalty.BalanceOf(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)
}

func TestApplyPointsDiscountClampedToTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := int64(7)

	require.NoError(t, f.loyalty.Bonus(ctx, customerID, 10000, "signup bonus"))

	order := f.createOrder(t, &customerID, lineCmd(50, 1)) // total 1

	order, err := f.service.ApplyPointsDiscount(ctx, order.ID, 9000)
	require.NoError(t, err)
	assert.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 100, order.PointsRedeemed)

	balance, err := f.loyalty.BalanceOf(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 9900, balance)
}

func TestLineMutationsRejectedAfterDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := int64(7)

	require.NoError(t, f.loyalty.Bonus(ctx, customerID, 200000, "signup bonus"))

	order := f.createOrder(t, &customerID, lineCmd(10, 2), lineCmd(20, 1)) // total 2000

	order, err := f.service.ApplyPointsDiscount(ctx, order.ID, 200000)
	require.NoError(t, err)
	require.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(2000)))

	// Removing the 1000 line would push the total below the discount.
	_, err = f.service.RemoveLine(ctx, order.ID, order.Lines[1].ID)
	var serr *domain.InvalidStateError
	require.ErrorAs(t, err, &serr)

	_, err = f.service.UpdateLineQuantity(ctx, order.ID, order.Lines[0].ID, 1)
	require.ErrorAs(t, err, &serr)

	_, err = f.service.AddLine(ctx, order.ID, lineCmd(30, 1))
	require.ErrorAs(t, err, &serr)

	stored, err := f.store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, stored.DiscountAmount.LessThanOrEqual(stored.TotalAmount))
}

func TestApplyPointsDiscountWalkInRejected(t *testing.T) {
	f := newFixture(t)

	order := f.createOrder(t, nil, lineCmd(10, 1))

	_, err := f.service.ApplyPointsDiscount(context.Background(), order.ID, 100)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "customer", verr.Field)
}

func TestGetByNumber(t *testing.T) {
	f := newFixture(t)

	order := f.createOrder(t, nil, lineCmd(10, 1))

	found, err := f.service.GetByNumber(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = f.service.GetByNumber(context.Background(), "BR-19700101-001")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListByCustomer(t *testing.T) {
	f := newFixture(t)
	customerID := int64(7)

	f.createOrder(t, &customerID, lineCmd(10, 1))
	f.createOrder(t, &customerID, lineCmd(20, 1))
	f.createOrder(t, nil, lineCmd(10, 1))

	orders, err := f.service.ListByCustomer(context.Background(), customerID, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = f.service.ListByCustomer(context.Background(), customerID, 1)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
