package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate root for a single customer order. All line
// mutations go through its methods so that TotalAmount always equals the
// sum of line subtotals.
type Order struct {
	ID             int64
	Number         string
	CustomerID     *int64 // nil for walk-in orders
	Type           OrderType
	Status         Status
	Lines          []OrderLine
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	PointsEarned   int
	PointsRedeemed int
	Notes          *string
	OrderedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// OrderLine is one priced position of an order. UnitPrice and TaxRate are
// snapshotted when the line is added and do not follow later menu changes.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
	Notes     *string
}

// NewOrder creates a pending order from already-priced lines.
func NewOrder(customerID *int64, orderType OrderType, lines []OrderLine) (*Order, error) {
	if !ValidOrderType(orderType) {
		return nil, &ValidationError{Field: "order_type", Reason: "must be one of dine_in, takeout, delivery"}
	}
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "lines", Reason: "order must contain at least one line"}
	}

	now := time.Now()
	order := &Order{
		CustomerID:     customerID,
		Type:           orderType,
		Status:         StatusPending,
		TotalAmount:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		OrderedAt:      now,
		UpdatedAt:      now,
	}

	for _, line := range lines {
		if err := order.AddLine(line); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// mutable reports whether line mutations are still allowed.
func (o *Order) mutable() bool {
	return o.Status == StatusPending || o.Status == StatusPreparing
}

// lineMutationAllowed guards every line mutation. Lines freeze once points
// have been redeemed, otherwise a removal could leave the recorded discount
// larger than the new total.
func (o *Order) lineMutationAllowed(op string) error {
	if !o.mutable() {
		return &InvalidStateError{Entity: "order", State: string(o.Status), Op: op}
	}
	if o.PointsRedeemed > 0 {
		return &InvalidStateError{Entity: "order", State: "discounted", Op: op}
	}
	return nil
}

func (o *Order) AddLine(line OrderLine) error {
	if err := o.lineMutationAllowed("add line"); err != nil {
		return err
	}

	subtotal, err := LineSubtotal(line.Quantity, line.UnitPrice, line.TaxRate)
	if err != nil {
		return err
	}
	line.Subtotal = subtotal
	o.Lines = append(o.Lines, line)
	o.recalcTotal()
	return nil
}

func (o *Order) RemoveLine(lineID int64) error {
	if err := o.lineMutationAllowed("remove line"); err != nil {
		return err
	}

	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.recalcTotal()
			return nil
		}
	}
	return ErrLineNotFound
}

func (o *Order) UpdateLineQuantity(lineID int64, quantity int) error {
	if err := o.lineMutationAllowed("update line quantity"); err != nil {
		return err
	}

	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			subtotal, err := LineSubtotal(quantity, o.Lines[i].UnitPrice, o.Lines[i].TaxRate)
			if err != nil {
				return err
			}
			o.Lines[i].Quantity = quantity
			o.Lines[i].Subtotal = subtotal
			o.recalcTotal()
			return nil
		}
	}
	return ErrLineNotFound
}

func (o *Order) recalcTotal() {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal)
	}
	o.TotalAmount = total
	o.UpdatedAt = time.Now()
}

// TransitionTo moves the order along the status state machine. Transitioning
// to completed stamps CompletedAt. Points are awarded by the caller as part
// of the completion transition, never implicitly.
func (o *Order) TransitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return &InvalidTransitionError{From: o.Status, To: newStatus}
	}

	o.Status = newStatus
	o.UpdatedAt = time.Now()

	if newStatus == StatusCompleted {
		now := time.Now()
		o.CompletedAt = &now
	}
	return nil
}

func (o *Order) CanTransitionTo(newStatus Status) bool {
	for _, s := range validTransitions[o.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// CalculatePointsEarned returns the loyalty points this order yields:
// floor((total - discount) * pointsPerCurrencyUnit). Pure, so it can be
// called for preview before completion.
func (o *Order) CalculatePointsEarned(pointsPerCurrencyUnit int) int {
	paid := o.TotalAmount.Sub(o.DiscountAmount)
	return CurrencyToPoints(paid, pointsPerCurrencyUnit)
}

// ApplyPointsDiscount records a points redemption against the order.
// Discounts are applied before completion so that points are later earned
// on the amount actually paid.
func (o *Order) ApplyPointsDiscount(points int, discount decimal.Decimal) error {
	if o.Status.IsTerminal() {
		return &InvalidStateError{Entity: "order", State: string(o.Status), Op: "apply points discount"}
	}
	if points <= 0 {
		return &ValidationError{Field: "points", Reason: "must be greater than zero"}
	}
	if discount.GreaterThan(o.TotalAmount) {
		return &ValidationError{Field: "discount_amount", Reason: "must not exceed order total"}
	}

	o.DiscountAmount = discount
	o.PointsRedeemed = points
	o.UpdatedAt = time.Now()
	return nil
}
