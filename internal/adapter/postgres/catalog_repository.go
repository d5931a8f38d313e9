package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bistroroyale/backend/internal/domain"
	"github.com/bistroroyale/backend/internal/interfaces"
)

// catalogRepository reads the menu the engine orders against. The engine
// only consumes orderability, price, and tax rate; everything else about
// the menu lives outside this core.
type catalogRepository struct {
	db DB
}

func NewCatalogRepository(db DB) interfaces.ProductCatalog {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) IsOrderable(ctx context.Context, productID int64) (bool, error) {
	q := querier(ctx, r.db)

	var available bool
	err := q.QueryRow(ctx, `SELECT is_available FROM food_items WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrProductNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to check product availability: %w", err)
	}
	return available, nil
}

func (r *catalogRepository) PriceOf(ctx context.Context, productID int64) (decimal.Decimal, error) {
	q := querier(ctx, r.db)

	var price decimal.Decimal
	err := q.QueryRow(ctx, `SELECT price FROM food_items WHERE id = $1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.ErrProductNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load product price: %w", err)
	}
	return price, nil
}

func (r *catalogRepository) TaxRateOf(ctx context.Context, productID int64) (decimal.Decimal, error) {
	q := querier(ctx, r.db)

	var taxRate decimal.Decimal
	err := q.QueryRow(ctx, `SELECT tax_rate FROM food_items WHERE id = $1`, productID).Scan(&taxRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.ErrProductNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load product tax rate: %w", err)
	}
	return taxRate, nil
}
