package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol maps a currency code to its display prefix.
func Symbol(currency string) string {
	switch currency {
	case "EUR":
		return "€"
	case "USD", "USDT":
		return "$"
	default:
		return currency + " "
	}
}

// AverageUnit is the effective per-unit price across all segments,
// rounded to 2 decimal places.
func (b Breakdown) AverageUnit() decimal.Decimal {
	if b.Quantity == 0 {
		return decimal.Zero
	}
	return b.Total.Div(decimal.NewFromInt(int64(b.Quantity))).Round(2)
}

// Format renders the breakdown for chat display. Monetary values are
// rounded to 2 decimal places here and nowhere earlier. A single segment
// renders as one line; multiple segments render itemized with a total and
// an average-unit-price footer.
func (b Breakdown) Format(symbol string) string {
	if len(b.Segments) == 1 {
		s := b.Segments[0]
		return fmt.Sprintf("%d × %s%s = %s%s",
			s.Quantity, symbol, s.UnitPrice.Round(2).StringFixed(2), symbol, b.Total.Round(2).StringFixed(2))
	}
	var sb strings.Builder
	for _, s := range b.Segments {
		fmt.Fprintf(&sb, "%d × %s%s = %s%s\n",
			s.Quantity, symbol, s.UnitPrice.Round(2).StringFixed(2), symbol, s.Total().Round(2).StringFixed(2))
	}
	fmt.Fprintf(&sb, "Total: %d units = %s%s\n", b.Quantity, symbol, b.Total.Round(2).StringFixed(2))
	fmt.Fprintf(&sb, "Average unit price: %s%s", symbol, b.AverageUnit().StringFixed(2))
	return sb.String()
}
