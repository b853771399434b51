package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	apperrors "datanorm-pricing/pkg/errors"
)

// DefaultRoundDigits is the decimal-digit count used for derived figures.
const DefaultRoundDigits = 2

// Digits validates a rounding digit count. Fractional counts are truncated
// toward zero; a negative result is rejected.
func Digits(digits float64) (int32, error) {
	if math.IsNaN(digits) || math.IsInf(digits, 0) {
		return 0, &apperrors.CatalogError{
			Code:     apperrors.ErrCodeInvalidPrecision,
			Message:  "digits must be a finite number",
			Severity: apperrors.SeverityError,
		}
	}
	truncated := math.Trunc(digits)
	if truncated < 0 {
		return 0, apperrors.NewInvalidPrecisionError(int(math.Max(truncated, math.MinInt32)))
	}
	if truncated > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int32(truncated), nil
}

// Round rounds value half to even to the given digit count.
func Round(value decimal.Decimal, digits float64) (decimal.Decimal, error) {
	places, err := Digits(digits)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return roundTo(value, places), nil
}

// roundTo leaves values that already fit in places untouched, so a huge
// digit count never rescales.
func roundTo(value decimal.Decimal, places int32) decimal.Decimal {
	if int64(places) >= -int64(value.Exponent()) {
		return value
	}
	return value.RoundBank(places)
}
