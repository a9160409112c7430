// Package format renders money and sizes for display. Values are formatted only at render time;
// the cart keeps raw numbers.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale and DefaultCurrency match the storefront's home market.
const (
	DefaultLocale   = "en-IN"
	DefaultCurrency = "INR"
)

var currencySymbols = map[string]string{
	"INR": "₹",
	"JPY": "¥",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// zero-decimal currencies
var wholeUnits = map[string]bool{
	"JPY": true,
}

// Money formats amounts for one locale and currency.
type Money struct {
	tag      language.Tag
	printer  *message.Printer
	currency string
	symbol   string
	scale    int
}

// NewMoney builds a formatter. Unparseable locales fall back to DefaultLocale and an empty
// currency to DefaultCurrency.
func NewMoney(locale, currency string) *Money {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.MustParse(DefaultLocale)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}
	scale := 2
	if wholeUnits[currency] {
		scale = 0
	}
	return &Money{
		tag:      tag,
		printer:  message.NewPrinter(tag),
		currency: currency,
		symbol:   symbol,
		scale:    scale,
	}
}

// Locale returns the resolved locale tag.
func (m *Money) Locale() language.Tag { return m.tag }

// Currency returns the ISO currency code.
func (m *Money) Currency() string { return m.currency }

// Format renders amount with the currency symbol, locale grouping and a fixed number of
// fraction digits, e.g. "₹1,20,000.00" for en-IN or "$1,234.50" for en-US.
func (m *Money) Format(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := m.printer.Sprint(number.Decimal(amount, number.Scale(m.scale)))
	if neg {
		return "-" + m.symbol + digits
	}
	return m.symbol + digits
}

// Number renders a plain grouped number with the given number of fraction digits.
func (m *Money) Number(v float64, decimals int) string {
	return m.printer.Sprint(number.Decimal(v, number.Scale(decimals)))
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FileSize renders a byte count with binary units and at most two decimals, e.g. 1536 → "1.5 KB".
func FileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return fmt.Sprintf("%s %s", strconv.FormatFloat(v, 'f', -1, 64), sizeUnits[i])
}
