package domain

import "github.com/shopspring/decimal"

// LineSubtotal computes a single order line's subtotal from quantity, unit
// price and tax rate using fixed-point arithmetic:
//
//	subtotal = quantity * unitPrice * (1 + taxRate)
func LineSubtotal(quantity int, unitPrice, taxRate decimal.Decimal) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}
	if taxRate.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "tax_rate", Reason: "must not be negative"}
	}

	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return base.Add(base.Mul(taxRate)), nil
}

// PointsToCurrency converts whole points to their cash value at the given
// rate (points per one currency unit).
func PointsToCurrency(points, pointsToCurrencyRate int) decimal.Decimal {
	if points <= 0 || pointsToCurrencyRate <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(points)).
		Div(decimal.NewFromInt(int64(pointsToCurrencyRate)))
}

// CurrencyToPoints converts a currency amount to whole points, rounding
// down. Negative amounts yield zero points.
func CurrencyToPoints(amount decimal.Decimal, pointsPerCurrencyUnit int) int {
	if amount.IsNegative() || pointsPerCurrencyUnit <= 0 {
		return 0
	}
	return int(amount.Mul(decimal.NewFromInt(int64(pointsPerCurrencyUnit))).IntPart())
}
