package views

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// dateLayouts mirror each locale's short datetime form.
var dateLayouts = map[string]string{
	"id": "02/01/2006, 15.04.05",
	"en": "1/2/2006, 3:04:05 PM",
}

const fallbackDateLayout = "2006-01-02 15:04:05"

// SymbolSeparator sits between the currency symbol and the amount. It is a
// non-breaking space so "Rp" never wraps away from its number.
const SymbolSeparator = "\u00a0"

// Formatter renders money and timestamps for one locale.
type Formatter struct {
	printer    *message.Printer
	symbol     string
	location   *time.Location
	dateLayout string
}

// NewFormatter builds a formatter for a BCP 47 language tag (e.g. "id"), a
// currency symbol (e.g. "Rp") and a display timezone.
func NewFormatter(lang, symbol string, loc *time.Location) (*Formatter, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("views: parse language %q: %w", lang, err)
	}
	if loc == nil {
		loc = time.Local
	}

	base, _ := tag.Base()
	layout, ok := dateLayouts[base.String()]
	if !ok {
		layout = fallbackDateLayout
	}

	return &Formatter{
		printer:    message.NewPrinter(tag),
		symbol:     symbol,
		location:   loc,
		dateLayout: layout,
	}, nil
}

// Currency formats whole units with locale grouping, e.g. "-Rp\u00a0500.000".
func (f *Formatter) Currency(amount decimal.Decimal) string {
	whole := amount.Round(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Abs()
	}
	return sign + f.symbol + SymbolSeparator + f.printer.Sprintf("%d", whole.IntPart())
}

// DateTime formats t in the display timezone.
func (f *Formatter) DateTime(t time.Time) string {
	return t.In(f.location).Format(f.dateLayout)
}
