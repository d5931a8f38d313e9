package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/config"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

// Service owns the order lifecycle: creation with catalog validation and
// price snapshotting, line mutations, and status transitions. Completing an
// order is the single entry point for awarding loyalty points.
type Service struct {
	orders    interfaces.OrderRepository
	catalog   interfaces.ProductCatalog
	loyalty   interfaces.LoyaltyService
	publisher interfaces.EventPublisher
	uow       interfaces.UnitOfWork
	logger    logger.Logger
	cfg       config.OrdersConfig
}

func NewService(
	orders interfaces.OrderRepository,
	catalog interfaces.ProductCatalog,
	loyalty interfaces.LoyaltyService,
	publisher interfaces.EventPublisher,
	uow interfaces.UnitOfWork,
	logger logger.Logger,
	cfg config.OrdersConfig,
) *Service {
	return &Service{
		orders:    orders,
		catalog:   catalog,
		loyalty:   loyalty,
		publisher: publisher,
		uow:       uow,
		logger:    logger,
		cfg:       cfg,
	}
}

func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	lines, err := s.priceLines(ctx, cmd.Lines)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewOrder(cmd.CustomerID, domain.OrderType(cmd.OrderType), lines)
	if err != nil {
		return nil, err
	}
	order.Notes = cmd.Notes

	// Concurrent creations on the same date may race for the same sequence
	// number; the unique constraint on the number surfaces the loser as a
	// conflict, which we retry with a fresh sequence.
	for attempt := 0; attempt < s.cfg.MaxNumberRetries; attempt++ {
		number, err := s.nextOrderNumber(ctx)
		if err != nil {
			return nil, err
		}
		order.Number = number

		err = s.uow.Do(ctx, func(ctx context.Context) error {
			return s.orders.Create(ctx, order)
		})
		var conflict *domain.ConcurrencyConflictError
		if errors.As(err, &conflict) {
			s.logger.Debug("order_number_conflict", fmt.Sprintf("Order number %s already taken, retrying", number), "", nil)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Debug("order_created", "Order created", "", map[string]interface{}{"order_number": order.Number})
		return order, nil
	}

	return nil, &domain.ConcurrencyConflictError{Resource: "order number"}
}

// priceLines validates every referenced product against the catalog and
// snapshots its current price and tax rate into the line.
func (s *Service) priceLines(ctx context.Context, cmds []interfaces.OrderLineCommand) ([]domain.OrderLine, error) {
	var unavailable []int64
	lines := make([]domain.OrderLine, 0, len(cmds))

	for _, cmd := range cmds {
		orderable, err := s.catalog.IsOrderable(ctx, cmd.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			unavailable = append(unavailable, cmd.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !orderable {
			unavailable = append(unavailable, cmd.ProductID)
			continue
		}

		price, err := s.catalog.PriceOf(ctx, cmd.ProductID)
		if err != nil {
			return nil, err
		}
		taxRate, err := s.catalog.TaxRateOf(ctx, cmd.ProductID)
		if err != nil {
			return nil, err
		}

		lines = append(lines, domain.OrderLine{
			ProductID: cmd.ProductID,
			Quantity:  cmd.Quantity,
			UnitPrice: price,
			TaxRate:   taxRate,
			Notes:     cmd.Notes,
		})
	}

	if len(unavailable) > 0 {
		return nil, &domain.InvalidItemsError{ProductIDs: unavailable}
	}
	return lines, nil
}

// nextOrderNumber formats <prefix>-<YYYYMMDD>-<NNN> where NNN is the 1-based
// count of orders created today, zero-padded to 3 digits.
func (s *Service) nextOrderNumber(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	count, err := s.orders.CountForDate(ctx, now)
	if err != nil {
		return "", fmt.Errorf("failed to count today's orders: %w", err)
	}
	return fmt.Sprintf("%s-%s-%03d", s.cfg.NumberPrefix, now.Format("20060102"), count+1), nil
}

func (s *Service) AddLine(ctx context.Context, orderID int64, cmd interfaces.OrderLineCommand) (*domain.Order, error) {
	var order *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		lines, err := s.priceLines(ctx, []interfaces.OrderLineCommand{cmd})
		if err != nil {
			return err
		}
		if err := order.AddLine(lines[0]); err != nil {
			return err
		}
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) RemoveLine(ctx context.Context, orderID, lineID int64) (*domain.Order, error) {
	var order *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.RemoveLine(lineID); err != nil {
			return err
		}
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) UpdateLineQuantity(ctx context.Context, orderID, lineID int64, quantity int) (*domain.Order, error) {
	var order *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.UpdateLineQuantity(lineID, quantity); err != nil {
			return err
		}
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Transition enforces the status state machine. Completion awards loyalty
// points in the same unit of work, so an award failure rolls the transition
// back.
func (s *Service) Transition(ctx context.Context, orderID int64, newStatus domain.Status) (*domain.Order, error) {
	var order *domain.Order
	var oldStatus domain.Status

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		oldStatus = order.Status
		if err := order.TransitionTo(newStatus); err != nil {
			return err
		}
		if newStatus == domain.StatusCompleted && order.CustomerID != nil {
			points, err := s.loyalty.Award(ctx, *order.CustomerID, order)
			if err != nil {
				return err
			}
			// Award returns 0 when the order was already credited; keep the
			// recorded figure in that case.
			if points > 0 {
				order.PointsEarned = points
			}
		}
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	msg := interfaces.StatusChangedMessage{
		OrderNumber: order.Number,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		Timestamp:   time.Now(),
	}
	if err := s.publisher.PublishStatusChanged(ctx, msg); err != nil {
		s.logger.Error("publish_failed", "Failed to publish status change", "", map[string]interface{}{"order_number": order.Number}, err)
	}
	return order, nil
}

// ApplyPointsDiscount redeems the customer's points against the order and
// records the resulting discount, all in one unit of work. A redemption
// worth more than the order total is clamped to the total.
func (s *Service) ApplyPointsDiscount(ctx context.Context, orderID int64, points int) (*domain.Order, error) {
	var order *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID == nil {
			return &domain.ValidationError{Field: "customer", Reason: "walk-in orders cannot redeem points"}
		}

		discount := s.loyalty.PointsToCurrency(points)
		if discount.GreaterThan(order.TotalAmount) {
			points = s.loyalty.PointsRequiredFor(order.TotalAmount)
			discount = order.TotalAmount
		}

		if err := order.ApplyPointsDiscount(points, discount); err != nil {
			return err
		}
		description := fmt.Sprintf("Redeemed for order %s", order.Number)
		if err := s.loyalty.Redeem(ctx, *order.CustomerID, points, &order.ID, description); err != nil {
			return err
		}
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// PreviewPoints reports the points the order would currently earn on
// completion.
func (s *Service) PreviewPoints(ctx context.Context, orderID int64) (int, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return s.loyalty.CurrencyToPoints(order.TotalAmount.Sub(order.DiscountAmount)), nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]*domain.Order, error) {
	return s.orders.ListByCustomer(ctx, customerID, limit)
}
