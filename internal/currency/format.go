// Package currency renders canonical Rupiah amounts in a display currency.
//
// Conversion uses fixed offline rates. It is approximate, display-only and
// never changes the stored amount.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	IDR Code = "IDR"
	USD Code = "USD"
	EUR Code = "EUR"
)

// Code is an ISO 4217 currency code supported by the formatter.
type Code string

var (
	usdRate = decimal.NewFromInt(14000)
	eurRate = decimal.NewFromInt(16000)

	rupiahPrinter = message.NewPrinter(language.Indonesian)
)

// Codes lists the supported display currencies.
func Codes() []Code {
	return []Code{IDR, USD, EUR}
}

// ParseCode maps a stored code to a Code. Unknown values fall back to IDR.
func ParseCode(s string) Code {
	switch Code(strings.ToUpper(strings.TrimSpace(s))) {
	case USD:
		return USD
	case EUR:
		return EUR
	default:
		return IDR
	}
}

func (c Code) Valid() bool {
	switch c {
	case IDR, USD, EUR:
		return true
	}
	return false
}

// Symbol returns the display symbol for c.
func Symbol(c Code) string {
	switch c {
	case USD:
		return "$"
	case EUR:
		return "€"
	default:
		return "Rp"
	}
}

// Convert divides a Rupiah amount by the fixed rate of c.
func Convert(amount decimal.Decimal, c Code) decimal.Decimal {
	switch c {
	case USD:
		return amount.Div(usdRate)
	case EUR:
		return amount.Div(eurRate)
	default:
		return amount
	}
}

// Format renders amount in c.
//
//	Format(5000000, IDR) -> "Rp 5.000.000"
//	Format(5000000, USD) -> "$357.14"
//	Format(5000000, EUR) -> "€312.50"
func Format(amount decimal.Decimal, c Code) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	switch c {
	case USD, EUR:
		return sign + Symbol(c) + Convert(amount, c).StringFixed(2)
	default:
		return sign + "Rp " + rupiahPrinter.Sprintf("%d", amount.Round(0).IntPart())
	}
}

// Formatter binds Format to a selected currency.
type Formatter struct {
	Code Code
}

// NewFormatter returns a Formatter for code, falling back to IDR.
func NewFormatter(code string) Formatter {
	return Formatter{Code: ParseCode(code)}
}

func (f Formatter) Format(amount decimal.Decimal) string {
	return Format(amount, f.Code)
}

// FormatSigned prefixes "+" for income and "-" for expense as the tables do.
func (f Formatter) FormatSigned(amount decimal.Decimal, income bool) string {
	if income {
		return "+" + Format(amount.Abs(), f.Code)
	}
	return "-" + Format(amount.Abs(), f.Code)
}
