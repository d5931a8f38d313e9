package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type salesRepository struct {
	db DB
}

func NewSalesRepository(db DB) interfaces.SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) GetByDate(ctx context.Context, date time.Time) (*domain.DailySalesSummary, error) {
	q := querier(ctx, r.db)

	var summary domain.DailySalesSummary
	err := q.QueryRow(ctx, `
		SELECT id, date, total_revenue, order_count, average_order_value, top_product_id, updated_at
		FROM daily_sales_summary
		WHERE date = $1
	`, date).Scan(
		&summary.ID, &summary.Date, &summary.TotalRevenue, &summary.OrderCount,
		&summary.AverageOrderValue, &summary.TopProductID, &summary.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load daily summary: %w", err)
	}
	return &summary, nil
}

func (r *salesRepository) Save(ctx context.Context, summary *domain.DailySalesSummary) error {
	q := querier(ctx, r.db)

	query := `
		INSERT INTO daily_sales_summary (date, total_revenue, order_count, average_order_value, top_product_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date)
		DO UPDATE SET total_revenue = $2, order_count = $3, average_order_value = $4,
		              top_product_id = $5, updated_at = $6
		RETURNING id
	`
	err := q.QueryRow(ctx, query,
		summary.Date, summary.TotalRevenue, summary.OrderCount,
		summary.AverageOrderValue, summary.TopProductID, summary.UpdatedAt,
	).Scan(&summary.ID)
	if err != nil {
		return fmt.Errorf("failed to save daily summary: %w", err)
	}
	return nil
}

func (r *salesRepository) IsFolded(ctx context.Context, date time.Time, orderID int64) (bool, error) {
	q := querier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM daily_sales_orders WHERE date = $1 AND order_id = $2)`,
		date, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check folded order: %w", err)
	}
	return exists, nil
}

func (r *salesRepository) MarkFolded(ctx context.Context, date time.Time, orderID int64) error {
	q := querier(ctx, r.db)

	_, err := q.Exec(ctx,
		`INSERT INTO daily_sales_orders (date, order_id) VALUES ($1, $2)`,
		date, orderID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConcurrencyConflictError{Resource: "daily sales fold"}
		}
		return fmt.Errorf("failed to mark order folded: %w", err)
	}
	return nil
}

func (r *salesRepository) AddProductQuantities(ctx context.Context, date time.Time, quantities map[int64]int) error {
	q := querier(ctx, r.db)

	query := `
		INSERT INTO daily_product_sales (date, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (date, product_id)
		DO UPDATE SET quantity = daily_product_sales.quantity + $3
	`
	for productID, qty := range quantities {
		if _, err := q.Exec(ctx, query, date, productID, qty); err != nil {
			return fmt.Errorf("failed to accumulate product sales: %w", err)
		}
	}
	return nil
}

func (r *salesRepository) TopProductOfDay(ctx context.Context, date time.Time) (*int64, error) {
	q := querier(ctx, r.db)

	var productID int64
	err := q.QueryRow(ctx, `
		SELECT product_id
		FROM daily_product_sales
		WHERE date = $1
		ORDER BY quantity DESC, product_id
		LIMIT 1
	`, date).Scan(&productID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find top product: %w", err)
	}
	return &productID, nil
}
