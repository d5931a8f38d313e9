package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

// Store is an in-memory implementation of every engine repository plus the
// product catalog. It backs the test suite. mu serializes individual
// repository calls; txMu serializes whole units of work, standing in for
// the transaction boundaries the Postgres adapter gets from the database.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	orders      map[int64]*domain.Order
	orderByNum  map[string]int64
	nextOrderID int64
	nextLineID  int64

	payments      map[int64]*domain.Payment
	nextPaymentID int64

	entries     []*domain.LedgerEntry
	nextEntryID int64
	accounts    map[int64]*domain.PointsAccount

	summaries  map[string]*domain.DailySalesSummary
	folded     map[string]map[int64]bool
	productQty map[string]map[int64]int
	nextSumID  int64

	products map[int64]product
}

type product struct {
	price     decimal.Decimal
	taxRate   decimal.Decimal
	available bool
}

func NewStore() *Store {
	return &Store{
		orders:     make(map[int64]*domain.Order),
		orderByNum: make(map[string]int64),
		payments:   make(map[int64]*domain.Payment),
		accounts:   make(map[int64]*domain.PointsAccount),
		summaries:  make(map[string]*domain.DailySalesSummary),
		folded:     make(map[string]map[int64]bool),
		productQty: make(map[string]map[int64]int),
		products:   make(map[int64]product),
	}
}

// SeedProduct registers a menu item the catalog can price.
func (s *Store) SeedProduct(id int64, price, taxRate decimal.Decimal, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = product{price: price, taxRate: taxRate, available: available}
}

func dateKey(t time.Time) string {
	return domain.SalesDate(t).Format("2006-01-02")
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Lines = make([]domain.OrderLine, len(o.Lines))
	copy(c.Lines, o.Lines)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	if p.Metadata != nil {
		c.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// --- OrderRepository ---

type orderRepo struct{ s *Store }

func (s *Store) Orders() interfaces.OrderRepository { return &orderRepo{s: s} }

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.orderByNum[order.Number]; exists {
		return &domain.ConcurrencyConflictError{Resource: "order number"}
	}

	r.s.nextOrderID++
	order.ID = r.s.nextOrderID
	for i := range order.Lines {
		r.s.nextLineID++
		order.Lines[i].ID = r.s.nextLineID
		order.Lines[i].OrderID = order.ID
	}

	r.s.orders[order.ID] = cloneOrder(order)
	r.s.orderByNum[order.Number] = order.ID
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *orderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.orderByNum[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(r.s.orders[id]), nil
}

func (r *orderRepo) Update(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	for i := range order.Lines {
		if order.Lines[i].ID == 0 {
			r.s.nextLineID++
			order.Lines[i].ID = r.s.nextLineID
			order.Lines[i].OrderID = order.ID
		}
	}
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *orderRepo) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Order
	for _, order := range r.s.orders {
		if order.Status == status {
			out = append(out, cloneOrder(order))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *orderRepo) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Order
	for _, order := range r.s.orders {
		if order.CustomerID != nil && *order.CustomerID == customerID {
			out = append(out, cloneOrder(order))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *orderRepo) CountForDate(ctx context.Context, date time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := dateKey(date)
	count := 0
	for _, order := range r.s.orders {
		if dateKey(order.OrderedAt) == key {
			count++
		}
	}
	return count, nil
}

// --- PaymentRepository ---

type paymentRepo struct{ s *Store }

func (s *Store) Payments() interfaces.PaymentRepository { return &paymentRepo{s: s} }

func (r *paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextPaymentID++
	payment.ID = r.s.nextPaymentID
	r.s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return clonePayment(payment), nil
}

func (r *paymentRepo) GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, payment := range r.s.payments {
		if payment.TransactionRef != nil && *payment.TransactionRef == ref {
			return clonePayment(payment), nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *paymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.payments[payment.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	r.s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (r *paymentRepo) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Payment
	for _, payment := range r.s.payments {
		if payment.OrderID == orderID {
			out = append(out, clonePayment(payment))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- LedgerRepository ---

type ledgerRepo struct{ s *Store }

func (s *Store) Ledger() interfaces.LedgerRepository { return &ledgerRepo{s: s} }

func (r *ledgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// At most one earned entry per order, matching the partial unique
	// index the Postgres adapter relies on.
	if entry.Kind == domain.EntryEarned && entry.OrderID != nil {
		for _, existing := range r.s.entries {
			if existing.Kind == domain.EntryEarned && existing.OrderID != nil && *existing.OrderID == *entry.OrderID {
				return &domain.ConcurrencyConflictError{Resource: "earned points entry"}
			}
		}
	}

	r.s.nextEntryID++
	entry.ID = r.s.nextEntryID
	stored := *entry
	r.s.entries = append(r.s.entries, &stored)
	return nil
}

func (r *ledgerRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].UserID == userID {
			entry := *r.s.entries[i]
			out = append(out, &entry)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *ledgerRepo) HasEarnedForOrder(ctx context.Context, orderID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, entry := range r.s.entries {
		if entry.Kind == domain.EntryEarned && entry.OrderID != nil && *entry.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ledgerRepo) GetAccount(ctx context.Context, userID int64) (*domain.PointsAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := *account
	return &c, nil
}

func (r *ledgerRepo) SaveAccount(ctx context.Context, account *domain.PointsAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *account
	r.s.accounts[account.UserID] = &c
	return nil
}

// --- SalesRepository ---

type salesRepo struct{ s *Store }

func (s *Store) Sales() interfaces.SalesRepository { return &salesRepo{s: s} }

func (r *salesRepo) GetByDate(ctx context.Context, date time.Time) (*domain.DailySalesSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	summary, ok := r.s.summaries[dateKey(date)]
	if !ok {
		return nil, domain.ErrSummaryNotFound
	}
	c := *summary
	return &c, nil
}

func (r *salesRepo) Save(ctx context.Context, summary *domain.DailySalesSummary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if summary.ID == 0 {
		r.s.nextSumID++
		summary.ID = r.s.nextSumID
	}
	c := *summary
	r.s.summaries[dateKey(summary.Date)] = &c
	return nil
}

func (r *salesRepo) IsFolded(ctx context.Context, date time.Time, orderID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.folded[dateKey(date)][orderID], nil
}

func (r *salesRepo) MarkFolded(ctx context.Context, date time.Time, orderID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := dateKey(date)
	if r.s.folded[key] == nil {
		r.s.folded[key] = make(map[int64]bool)
	}
	r.s.folded[key][orderID] = true
	return nil
}

func (r *salesRepo) AddProductQuantities(ctx context.Context, date time.Time, quantities map[int64]int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := dateKey(date)
	if r.s.productQty[key] == nil {
		r.s.productQty[key] = make(map[int64]int)
	}
	for productID, qty := range quantities {
		r.s.productQty[key][productID] += qty
	}
	return nil
}

func (r *salesRepo) TopProductOfDay(ctx context.Context, date time.Time) (*int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var top *int64
	best := 0
	for productID, qty := range r.s.productQty[dateKey(date)] {
		if qty > best || (qty == best && top != nil && productID < *top) {
			id := productID
			top = &id
			best = qty
		}
	}
	return top, nil
}

// --- ProductCatalog ---

type catalog struct{ s *Store }

func (s *Store) Catalog() interfaces.ProductCatalog { return &catalog{s: s} }

func (c *catalog) IsOrderable(ctx context.Context, productID int64) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	p, ok := c.s.products[productID]
	if !ok {
		return false, domain.ErrProductNotFound
	}
	return p.available, nil
}

func (c *catalog) PriceOf(ctx context.Context, productID int64) (decimal.Decimal, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	p, ok := c.s.products[productID]
	if !ok {
		return decimal.Zero, domain.ErrProductNotFound
	}
	return p.price, nil
}

func (c *catalog) TaxRateOf(ctx context.Context, productID int64) (decimal.Decimal, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	p, ok := c.s.products[productID]
	if !ok {
		return decimal.Zero, domain.ErrProductNotFound
	}
	return p.taxRate, nil
}

// --- UnitOfWork ---

type unitOfWork struct{ s *Store }

type txKey struct{}

// UnitOfWork returns a unit of work that holds txMu for the whole Do block,
// so check-then-act sequences inside a unit of work cannot interleave.
// Nested Do calls join the enclosing block instead of deadlocking.
func (s *Store) UnitOfWork() interfaces.UnitOfWork { return unitOfWork{s: s} }

func (u unitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	u.s.txMu.Lock()
	defer u.s.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, struct{}{}))
}
