package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders an amount with the currency symbol and two decimals,
// e.g. Format(decimal.NewFromInt(150), "USD") == "$150.00".
func Format(amount decimal.Decimal, currency string) string {
	return symbol(currency) + amount.StringFixed(2)
}

// Cents converts a 2-place amount to minor units (Stripe style).
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromCents is the inverse of Cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func symbol(code string) string {
	switch strings.ToUpper(code) {
	case "EUR":
		return "€"
	case "USD":
		return "$"
	case "GBP":
		return "£"
	case "JPY":
		return "¥"
	case "TRY":
		return "₺"
	default:
		return strings.ToUpper(code) + " "
	}
}
