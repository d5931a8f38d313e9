package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

type paymentRepository struct {
	db DB
}

func NewPaymentRepository(db DB) interfaces.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	q := querier(ctx, r.db)

	meta, err := marshalMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (order_id, amount, method, status, transaction_reference, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = q.QueryRow(ctx, query,
		payment.OrderID, payment.Amount, payment.Method, payment.Status,
		payment.TransactionRef, meta, payment.CreatedAt, payment.UpdatedAt,
	).Scan(&payment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConcurrencyConflictError{Resource: "payment transaction reference"}
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

const paymentColumns = `id, order_id, amount, method, status, transaction_reference, metadata, created_at, updated_at`

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	q := querier(ctx, r.db)
	row := q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns), id)
	return scanPayment(row)
}

func (r *paymentRepository) GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	q := querier(ctx, r.db)
	row := q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE transaction_reference = $1`, paymentColumns), ref)
	return scanPayment(row)
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	q := querier(ctx, r.db)

	meta, err := marshalMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE payments
		SET status = $1, transaction_reference = $2, metadata = $3, updated_at = $4
		WHERE id = $5
	`
	_, err = q.Exec(ctx, query, payment.Status, payment.TransactionRef, meta, payment.UpdatedAt, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	q := querier(ctx, r.db)

	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM payments WHERE order_id = $1 ORDER BY created_at`, paymentColumns), orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row Row) (*domain.Payment, error) {
	var payment domain.Payment
	var meta []byte
	err := row.Scan(
		&payment.ID, &payment.OrderID, &payment.Amount, &payment.Method, &payment.Status,
		&payment.TransactionRef, &meta, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &payment.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode payment metadata: %w", err)
		}
	}
	return &payment, nil
}

func marshalMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment metadata: %w", err)
	}
	return data, nil
}
