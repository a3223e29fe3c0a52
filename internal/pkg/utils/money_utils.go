package utils

import (
	"math"

	"github.com/Rhymond/go-money"
)

// FormatUSD renders a USD amount for display, e.g. 1234.5 => "$1,234.50".
// Amounts are rounded to cents.
func FormatUSD(amount float64) string {
	cents := int64(math.Round(amount * 100))
	return money.New(cents, money.USD).Display()
}

// FormatOptionalUSD renders nil as an empty string.
func FormatOptionalUSD(amount *float64) string {
	if amount == nil {
		return ""
	}
	return FormatUSD(*amount)
}
