// Package money holds the fixed-point arithmetic used for all order
// amounts: 2-decimal quantization, floor-at-zero clamping, and the
// conversions between decimal.Decimal and pgtype.Numeric at the
// database boundary.
package money

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Quantize rounds to exactly 2 fraction digits (half away from zero).
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ClampZero floors a negative amount at zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FromNumeric converts a pgtype.Numeric read from the database.
// NULL or malformed values convert to zero.
func FromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ToNumeric converts a decimal for persistence, fixed at 2 fraction
// digits so external representations always carry exact precision.
func ToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
