// Package output - Currency formatting
package output

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when no currency code is given
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
}

// CurrencySymbol returns the display symbol for a code.
// Codes without a known symbol are returned unchanged.
func CurrencySymbol(code string) string {
	if code == "" {
		code = DefaultCurrency
	}
	if symbol, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return symbol
	}
	return code
}

// FormatCurrency renders an amount with two decimals, prefixed by the currency symbol
func FormatCurrency(amount decimal.Decimal, code string) string {
	return FormatCurrencyPlaces(amount, code, 2)
}

// FormatCurrencyPlaces renders an amount with a fixed number of decimals
func FormatCurrencyPlaces(amount decimal.Decimal, code string, places int32) string {
	return CurrencySymbol(code) + amount.StringFixed(places)
}
