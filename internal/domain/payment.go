package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records one payment attempt against an order. Metadata holds raw
// gateway responses and is never authoritative.
type Payment struct {
	ID             int64
	OrderID        int64
	Amount         decimal.Decimal
	Method         PaymentMethod
	Status         PaymentStatus
	TransactionRef *string // external gateway reference, unique when present
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewPayment(orderID int64, amount decimal.Decimal, method PaymentMethod) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	switch method {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobile:
	default:
		return nil, &ValidationError{Field: "payment_method", Reason: "must be one of cash, card, mobile"}
	}

	now := time.Now()
	return &Payment{
		OrderID:   orderID,
		Amount:    amount,
		Method:    method,
		Status:    PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkCompleted moves a pending payment to completed and attaches the
// external transaction reference.
func (p *Payment) MarkCompleted(transactionRef *string) error {
	if p.Status != PaymentPending {
		return &InvalidStateError{Entity: "payment", State: string(p.Status), Op: "complete"}
	}
	p.Status = PaymentCompleted
	p.TransactionRef = transactionRef
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Payment) MarkFailed() error {
	if p.Status != PaymentPending {
		return &InvalidStateError{Entity: "payment", State: string(p.Status), Op: "fail"}
	}
	p.Status = PaymentFailed
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Payment) MarkRefunded() error {
	if p.Status != PaymentCompleted {
		return &InvalidStateError{Entity: "payment", State: string(p.Status), Op: "refund"}
	}
	p.Status = PaymentRefunded
	p.UpdatedAt = time.Now()
	return nil
}
