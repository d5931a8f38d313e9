package sales

import (
	"context"
	"errors"
	"time"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

// Service maintains the daily sales summaries. Each completed order is
// folded into its completion date's summary exactly once; the folded-order
// set makes re-folding a no-op.
type Service struct {
	sales  interfaces.SalesRepository
	orders interfaces.OrderRepository
	uow    interfaces.UnitOfWork
	logger logger.Logger
}

func NewService(
	sales interfaces.SalesRepository,
	orders interfaces.OrderRepository,
	uow interfaces.UnitOfWork,
	logger logger.Logger,
) *Service {
	return &Service{
		sales:  sales,
		orders: orders,
		uow:    uow,
		logger: logger,
	}
}

func (s *Service) Fold(ctx context.Context, order *domain.Order) (bool, error) {
	if order.Status != domain.StatusCompleted || order.CompletedAt == nil {
		return false, &domain.InvalidStateError{Entity: "order", State: string(order.Status), Op: "fold into daily sales"}
	}
	date := domain.SalesDate(*order.CompletedAt)

	folded := false
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		already, err := s.sales.IsFolded(ctx, date, order.ID)
		if err != nil {
			return err
		}
		if already {
			return nil
		}

		summary, err := s.sales.GetByDate(ctx, date)
		if errors.Is(err, domain.ErrSummaryNotFound) {
			summary = domain.NewDailySalesSummary(date)
		} else if err != nil {
			return err
		}
		summary.Fold(order)

		quantities := make(map[int64]int, len(order.Lines))
		for _, line := range order.Lines {
			quantities[line.ProductID] += line.Quantity
		}
		if err := s.sales.AddProductQuantities(ctx, date, quantities); err != nil {
			return err
		}
		top, err := s.sales.TopProductOfDay(ctx, date)
		if err != nil {
			return err
		}
		summary.TopProductID = top

		if err := s.sales.Save(ctx, summary); err != nil {
			return err
		}
		if err := s.sales.MarkFolded(ctx, date, order.ID); err != nil {
			return err
		}
		folded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return folded, nil
}

// RunOnce folds every completed order not yet in its day's summary. It is
// the periodic entry point the aggregator mode runs on a cadence.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	orders, err := s.orders.ListByStatus(ctx, domain.StatusCompleted)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, order := range orders {
		folded, err := s.Fold(ctx, order)
		if err != nil {
			s.logger.Error("fold_failed", "Failed to fold order into daily summary", "", map[string]interface{}{"order_number": order.Number}, err)
			continue
		}
		if folded {
			count++
		}
	}
	return count, nil
}

func (s *Service) SummaryFor(ctx context.Context, date time.Time) (*domain.DailySalesSummary, error) {
	return s.sales.GetByDate(ctx, domain.SalesDate(date))
}
