package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSubtotal(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		unitPrice string
		taxRate   string
		want      string
		wantErr   bool
	}{
		{name: "no tax", quantity: 2, unitPrice: "1000", taxRate: "0", want: "2000"},
		{name: "with tax", quantity: 3, unitPrice: "100", taxRate: "0.12", want: "336"},
		{name: "fractional price", quantity: 1, unitPrice: "9.99", taxRate: "0.1", want: "10.989"},
		{name: "zero quantity", quantity: 0, unitPrice: "100", taxRate: "0", wantErr: true},
		{name: "negative quantity", quantity: -1, unitPrice: "100", taxRate: "0", wantErr: true},
		{name: "negative price", quantity: 1, unitPrice: "-5", taxRate: "0", wantErr: true},
		{name: "negative tax rate", quantity: 1, unitPrice: "5", taxRate: "-0.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LineSubtotal(tt.quantity, decimal.RequireFromString(tt.unitPrice), decimal.RequireFromString(tt.taxRate))
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestCurrencyToPoints(t *testing.T) {
	assert.Equal(t, 20000, CurrencyToPoints(decimal.RequireFromString("2000"), 10))
	// Fractional results round down.
	assert.Equal(t, 199, CurrencyToPoints(decimal.RequireFromString("19.99"), 10))
	assert.Equal(t, 0, CurrencyToPoints(decimal.RequireFromString("-5"), 10))
	assert.Equal(t, 0, CurrencyToPoints(decimal.RequireFromString("100"), 0))
}

func TestPointsToCurrency(t *testing.T) {
	assert.True(t, PointsToCurrency(100, 100).Equal(decimal.NewFromInt(1)))
	assert.True(t, PointsToCurrency(250, 100).Equal(decimal.RequireFromString("2.5")))
	assert.True(t, PointsToCurrency(0, 100).IsZero())
	assert.True(t, PointsToCurrency(-10, 100).IsZero())
}

func TestConversionMonotonic(t *testing.T) {
	// More money spent never earns fewer points.
	prev := 0
	for _, amount := range []string{"0.01", "1", "9.99", "10", "99.50", "100"} {
		points := CurrencyToPoints(decimal.RequireFromString(amount), 10)
		assert.GreaterOrEqual(t, points, prev)
		prev = points
	}
}
