package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	q := querier(ctx, r.db)

	query := `
		INSERT INTO orders (number, customer_id, type, status, total_amount, discount_amount,
		                    points_earned, points_redeemed, notes, ordered_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := q.QueryRow(ctx, query,
		order.Number, order.CustomerID, order.Type, order.Status, order.TotalAmount, order.DiscountAmount,
		order.PointsEarned, order.PointsRedeemed, order.Notes, order.OrderedAt, order.UpdatedAt, order.CompletedAt,
	).Scan(&order.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConcurrencyConflictError{Resource: "order number"}
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := r.insertLines(ctx, q, order); err != nil {
		return err
	}
	return nil
}

func (r *orderRepository) insertLines(ctx context.Context, q Querier, order *domain.Order) error {
	query := `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price, tax_rate, subtotal, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	for i := range order.Lines {
		err := q.QueryRow(ctx, query,
			order.ID, order.Lines[i].ProductID, order.Lines[i].Quantity,
			order.Lines[i].UnitPrice, order.Lines[i].TaxRate, order.Lines[i].Subtotal, order.Lines[i].Notes,
		).Scan(&order.Lines[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
		order.Lines[i].OrderID = order.ID
	}
	return nil
}

const orderColumns = `id, number, customer_id, type, status, total_amount, discount_amount,
	       points_earned, points_redeemed, notes, ordered_at, updated_at, completed_at`

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOne(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns), id)
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getOne(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE number = $1`, orderColumns), number)
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	q := querier(ctx, r.db)

	var order domain.Order
	err := q.QueryRow(ctx, query, arg).Scan(
		&order.ID, &order.Number, &order.CustomerID, &order.Type, &order.Status,
		&order.TotalAmount, &order.DiscountAmount, &order.PointsEarned, &order.PointsRedeemed,
		&order.Notes, &order.OrderedAt, &order.UpdatedAt, &order.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := r.loadLines(ctx, q, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, q Querier, order *domain.Order) error {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, tax_rate, subtotal, notes
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := q.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity,
			&line.UnitPrice, &line.TaxRate, &line.Subtotal, &line.Notes); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	return rows.Err()
}

// Update persists the order row and replaces its line set. Callers wrap it
// in a unit of work so the row and line writes commit together.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	q := querier(ctx, r.db)

	query := `
		UPDATE orders
		SET status = $1, total_amount = $2, discount_amount = $3, points_earned = $4,
		    points_redeemed = $5, notes = $6, updated_at = $7, completed_at = $8
		WHERE id = $9
	`
	_, err := q.Exec(ctx, query,
		order.Status, order.TotalAmount, order.DiscountAmount, order.PointsEarned,
		order.PointsRedeemed, order.Notes, order.UpdatedAt, order.CompletedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}
	return r.insertLines(ctx, q, order)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	q := querier(ctx, r.db)

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE status = $1 ORDER BY ordered_at`, orderColumns)
	rows, err := q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	defer rows.Close()

	return r.scanOrders(ctx, q, rows)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]*domain.Order, error) {
	q := querier(ctx, r.db)

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE customer_id = $1 ORDER BY ordered_at DESC LIMIT $2`, orderColumns)
	rows, err := q.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by customer: %w", err)
	}
	defer rows.Close()

	return r.scanOrders(ctx, q, rows)
}

func (r *orderRepository) scanOrders(ctx context.Context, q Querier, rows Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.Number, &order.CustomerID, &order.Type, &order.Status,
			&order.TotalAmount, &order.DiscountAmount, &order.PointsEarned, &order.PointsRedeemed,
			&order.Notes, &order.OrderedAt, &order.UpdatedAt, &order.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, order := range orders {
		if err := r.loadLines(ctx, q, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) CountForDate(ctx context.Context, date time.Time) (int, error) {
	q := querier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE DATE(ordered_at AT TIME ZONE 'UTC') = $1`,
		date.UTC().Format("2006-01-02"),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders for date: %w", err)
	}
	return count, nil
}
