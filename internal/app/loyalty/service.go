package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/adapter/logger"
	"github.com/bistroroyale/backend/internal/config"
	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

// Service maintains the append-only points ledger and the cached per-user
// balance projection. Every entry append and its matching balance update
// happen in the same unit of work.
type Service struct {
	ledger    interfaces.LedgerRepository
	publisher interfaces.EventPublisher
	uow       interfaces.UnitOfWork
	logger    logger.Logger
	cfg       config.LoyaltyConfig
}

func NewService(
	ledger interfaces.LedgerRepository,
	publisher interfaces.EventPublisher,
	uow interfaces.UnitOfWork,
	logger logger.Logger,
	cfg config.LoyaltyConfig,
) *Service {
	return &Service{
		ledger:    ledger,
		publisher: publisher,
		uow:       uow,
		logger:    logger,
		cfg:       cfg,
	}
}

// Award credits the order's earned points to the user. A second call for
// the same order finds the existing earned entry and changes nothing.
func (s *Service) Award(ctx context.Context, userID int64, order *domain.Order) (int, error) {
	points := order.CalculatePointsEarned(s.cfg.PointsPerCurrencyUnit)
	if points == 0 {
		return 0, nil
	}

	var awarded, balance int
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		exists, err := s.ledger.HasEarnedForOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if exists {
			s.logger.Debug("points_already_awarded", fmt.Sprintf("Order %s already credited", order.Number), "", nil)
			return nil
		}

		entry, err := domain.NewLedgerEntry(userID, &order.ID, domain.EntryEarned, points,
			fmt.Sprintf("Earned from order %s", order.Number))
		if err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			return err
		}

		account, err := s.getOrCreateAccount(ctx, userID)
		if err != nil {
			return err
		}
		account.Apply(entry)
		if err := s.ledger.SaveAccount(ctx, account); err != nil {
			return err
		}

		awarded = points
		balance = account.Balance
		return nil
	})
	if err != nil {
		var conflict *domain.ConcurrencyConflictError
		if errors.As(err, &conflict) {
			// A concurrent caller appended the earned entry between our
			// existence check and the insert. The credit happened once.
			s.logger.Debug("points_already_awarded", fmt.Sprintf("Order %s credited concurrently", order.Number), "", nil)
			return 0, nil
		}
		return 0, err
	}

	if awarded > 0 {
		msg := interfaces.PointsAwardedMessage{
			OrderNumber: order.Number,
			UserID:      userID,
			Points:      awarded,
			Balance:     balance,
			Timestamp:   time.Now(),
		}
		if err := s.publisher.PublishPointsAwarded(ctx, msg); err != nil {
			s.logger.Error("publish_failed", "Failed to publish points award", "", map[string]interface{}{"user_id": userID}, err)
		}
	}
	return awarded, nil
}

func (s *Service) Bonus(ctx context.Context, userID int64, points int, description string) error {
	entry, err := domain.NewLedgerEntry(userID, nil, domain.EntryBonus, points, description)
	if err != nil {
		return err
	}
	return s.appendAndApply(ctx, entry)
}

// Redeem deducts points from the user's balance. Redemptions past the
// current balance fail with InsufficientPointsError and leave the ledger
// untouched.
func (s *Service) Redeem(ctx context.Context, userID int64, points int, orderID *int64, description string) error {
	if points <= 0 {
		return &domain.ValidationError{Field: "points", Reason: "must be greater than zero"}
	}

	return s.uow.Do(ctx, func(ctx context.Context) error {
		account, err := s.getOrCreateAccount(ctx, userID)
		if err != nil {
			return err
		}
		if points > account.Balance {
			return &domain.InsufficientPointsError{Requested: points, Balance: account.Balance}
		}

		entry, err := domain.NewLedgerEntry(userID, orderID, domain.EntryRedeemed, -points, description)
		if err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			return err
		}
		account.Apply(entry)
		return s.ledger.SaveAccount(ctx, account)
	})
}

// Adjust records an administrative correction. No sufficiency check is
// applied; corrections may push a balance below zero.
func (s *Service) Adjust(ctx context.Context, userID int64, delta int, description string) error {
	entry, err := domain.NewLedgerEntry(userID, nil, domain.EntryAdjusted, delta, description)
	if err != nil {
		return err
	}
	return s.appendAndApply(ctx, entry)
}

func (s *Service) appendAndApply(ctx context.Context, entry *domain.LedgerEntry) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.ledger.Append(ctx, entry); err != nil {
			return err
		}
		account, err := s.getOrCreateAccount(ctx, entry.UserID)
		if err != nil {
			return err
		}
		account.Apply(entry)
		return s.ledger.SaveAccount(ctx, account)
	})
}

func (s *Service) getOrCreateAccount(ctx context.Context, userID int64) (*domain.PointsAccount, error) {
	account, err := s.ledger.GetAccount(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.NewPointsAccount(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) BalanceOf(ctx context.Context, userID int64) (int, error) {
	account, err := s.ledger.GetAccount(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	return s.ledger.ListByUser(ctx, userID, limit)
}

func (s *Service) Summary(ctx context.Context, userID int64) (*interfaces.PointsSummary, error) {
	account, err := s.ledger.GetAccount(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		account = domain.NewPointsAccount(userID)
	} else if err != nil {
		return nil, err
	}

	milestone := s.cfg.RewardMilestone
	return &interfaces.PointsSummary{
		Balance:            account.Balance,
		LifetimeEarned:     account.LifetimeEarned,
		CashValue:          s.PointsToCurrency(account.Balance),
		PointsToNextReward: milestone - (account.LifetimeEarned % milestone),
	}, nil
}

func (s *Service) PointsToCurrency(points int) decimal.Decimal {
	return domain.PointsToCurrency(points, s.cfg.PointsToCurrencyRate)
}

func (s *Service) CurrencyToPoints(amount decimal.Decimal) int {
	return domain.CurrencyToPoints(amount, s.cfg.PointsPerCurrencyUnit)
}

func (s *Service) PointsRequiredFor(amount decimal.Decimal) int {
	if amount.IsNegative() {
		return 0
	}
	return int(amount.Mul(decimal.NewFromInt(int64(s.cfg.PointsToCurrencyRate))).Ceil().IntPart())
}
