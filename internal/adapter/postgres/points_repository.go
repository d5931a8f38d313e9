package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type ledgerRepository struct {
	db DB
}

func NewLedgerRepository(db DB) interfaces.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	q := querier(ctx, r.db)

	query := `
		INSERT INTO points_ledger (user_id, order_id, kind, points, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := q.QueryRow(ctx, query,
		entry.UserID, entry.OrderID, entry.Kind, entry.Points, entry.Description, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		// The partial unique index on earned entries per order trips when
		// two transactions credit the same order at once.
		if isUniqueViolation(err) {
			return &domain.ConcurrencyConflictError{Resource: "earned points entry"}
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	q := querier(ctx, r.db)

	query := `
		SELECT id, user_id, order_id, kind, points, description, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.OrderID, &entry.Kind,
			&entry.Points, &entry.Description, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *ledgerRepository) HasEarnedForOrder(ctx context.Context, orderID int64) (bool, error) {
	q := querier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM points_ledger WHERE order_id = $1 AND kind = $2)`,
		orderID, domain.EntryEarned,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check earned entry: %w", err)
	}
	return exists, nil
}

func (r *ledgerRepository) GetAccount(ctx context.Context, userID int64) (*domain.PointsAccount, error) {
	q := querier(ctx, r.db)

	var account domain.PointsAccount
	err := q.QueryRow(ctx,
		`SELECT user_id, balance, lifetime_earned, updated_at FROM points_accounts WHERE user_id = $1`,
		userID,
	).Scan(&account.UserID, &account.Balance, &account.LifetimeEarned, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load points account: %w", err)
	}
	return &account, nil
}

func (r *ledgerRepository) SaveAccount(ctx context.Context, account *domain.PointsAccount) error {
	q := querier(ctx, r.db)

	query := `
		INSERT INTO points_accounts (user_id, balance, lifetime_earned, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET balance = $2, lifetime_earned = $3, updated_at = $4
	`
	_, err := q.Exec(ctx, query, account.UserID, account.Balance, account.LifetimeEarned, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save points account: %w", err)
	}
	return nil
}
