package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

// Service records payment attempts against orders and drives order
// completion on successful payment. Completion is idempotent against
// repeated gateway confirmations.
type Service struct {
	payments interfaces.PaymentRepository
	orders   interfaces.OrderRepository
	orderSvc interfaces.OrderService
	uow      interfaces.UnitOfWork
	logger   logger.Logger
}

func NewService(
	payments interfaces.PaymentRepository,
	orders interfaces.OrderRepository,
	orderSvc interfaces.OrderService,
	uow interfaces.UnitOfWork,
	logger logger.Logger,
) *Service {
	return &Service{
		payments: payments,
		orders:   orders,
		orderSvc: orderSvc,
		uow:      uow,
		logger:   logger,
	}
}

func (s *Service) RecordPayment(ctx context.Context, orderID int64, amount decimal.Decimal, method domain.PaymentMethod) (*domain.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, &domain.InvalidStateError{Entity: "order", State: string(order.Status), Op: "record payment"}
	}

	payment, err := domain.NewPayment(orderID, amount, method)
	if err != nil {
		return nil, err
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Debug("payment_recorded", "Payment recorded", "", map[string]interface{}{
		"order_number": order.Number,
		"payment_id":   payment.ID,
	})
	return payment, nil
}

// MarkCompleted confirms a payment and completes its order exactly once.
// A confirmation for an already-completed payment (a webhook retry) returns
// success without touching the order or the ledger again.
func (s *Service) MarkCompleted(ctx context.Context, paymentID int64, transactionRef *string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == domain.PaymentCompleted {
			s.logger.Debug("payment_already_completed", "Duplicate confirmation ignored", "", map[string]interface{}{"payment_id": paymentID})
			return nil
		}
		if !payment.Amount.IsPositive() {
			return &domain.ValidationError{Field: "amount", Reason: "must be greater than zero"}
		}

		if err := payment.MarkCompleted(transactionRef); err != nil {
			return err
		}
		if err := s.payments.Update(ctx, payment); err != nil {
			return err
		}

		order, err := s.orders.GetByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if order.Status != domain.StatusCompleted {
			if _, err := s.orderSvc.Transition(ctx, payment.OrderID, domain.StatusCompleted); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// MarkFailed records a terminal failure. The engine never retries a failed
// payment; callers record a fresh one instead.
func (s *Service) MarkFailed(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	return s.finalize(ctx, paymentID, (*domain.Payment).MarkFailed)
}

func (s *Service) MarkRefunded(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	return s.finalize(ctx, paymentID, (*domain.Payment).MarkRefunded)
}

func (s *Service) GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return s.payments.GetByTransactionRef(ctx, ref)
}

func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	return s.payments.ListByOrder(ctx, orderID)
}

func (s *Service) finalize(ctx context.Context, paymentID int64, transition func(*domain.Payment) error) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := transition(payment); err != nil {
			return err
		}
		return s.payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}
