package common

import (
	"math"

	"github.com/shopspring/decimal"
)

// https://stackoverflow.com/questions/18390266/how-can-we-truncate-float64-type-to-a-particular-precision
func Round(num float64) int {
	return int(num + math.Copysign(0.5, num))
}

// DecimalToFixed rounds num half away from zero to precision decimal places.
// Non-finite values are returned as-is.
func DecimalToFixed(num float64, precision int) float64 {
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return num
	}
	return decimal.NewFromFloat(num).Round(int32(precision)).InexactFloat64()
}
