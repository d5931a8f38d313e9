package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input: non-positive quantity, negative
// price or amount, and similar. Always recoverable by rejecting the single
// operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports a mutation attempted against a terminal or
// wrong-phase order or payment.
type InvalidStateError struct {
	Entity string
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s in state %q does not allow %s", e.Entity, e.State, e.Op)
}

// InvalidTransitionError names the illegal (from, to) status pair.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition %s -> %s", e.From, e.To)
}

// InvalidItemsError lists the products that were missing or unavailable at
// order-creation time.
type InvalidItemsError struct {
	ProductIDs []int64
}

func (e *InvalidItemsError) Error() string {
	return fmt.Sprintf("products unavailable: %v", e.ProductIDs)
}

// InsufficientPointsError is returned when a redemption exceeds the user's
// point balance.
type InsufficientPointsError struct {
	Requested int
	Balance   int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: requested %d, balance %d", e.Requested, e.Balance)
}

// ConcurrencyConflictError marks a violated serialization boundary, such as
// an order-number collision. It is the only error the services retry.
type ConcurrencyConflictError struct {
	Resource string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s", e.Resource)
}

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrLineNotFound    = errors.New("order line not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAccountNotFound = errors.New("points account not found")
	ErrSummaryNotFound = errors.New("daily sales summary not found")
	ErrProductNotFound = errors.New("product not found")
)
