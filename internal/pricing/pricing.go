// Package pricing parses the free-text amounts stored on quotes and formats
// them the Italian way.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
)

var printer = message.NewPrinter(language.Italian)

// ParseAmount reads a price or quantity typed by a user. A comma is accepted
// as the decimal separator. Anything that does not parse counts as zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "€"))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders d as "10.345,00".
func Format(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// FormatPrice formats a stored price string, returning "0,00" when it does
// not parse.
func FormatPrice(s string) string {
	return Format(ParseAmount(s))
}

// SingleTotal is quantity times unit price, less the discount when its flag is set.
func SingleTotal(p *models.SingleProduct) decimal.Decimal {
	total := ParseAmount(p.UnitPrice).Mul(quantity(p.Quantity))
	if p.DiscountFlag {
		total = total.Sub(ParseAmount(p.Discount))
	}
	return total
}

// RowTotal is price times quantity for a table row.
func RowTotal(r models.ProductRow) decimal.Decimal {
	return ParseAmount(r.Price).Mul(quantity(r.Quantity))
}

// TabTotal sums a tab of either variant.
func TabTotal(t models.Tab) decimal.Decimal {
	switch {
	case t.Single != nil:
		return SingleTotal(t.Single)
	case t.Multi != nil:
		sum := decimal.Zero
		for _, r := range t.Multi.Products {
			sum = sum.Add(RowTotal(r))
		}
		return sum
	}
	return decimal.Zero
}

// RecordTotal sums every tab of a quote.
func RecordTotal(r *models.Record) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range r.Tabs {
		sum = sum.Add(TabTotal(t))
	}
	return sum
}

// quantity treats an empty field as one piece.
func quantity(s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.NewFromInt(1)
	}
	return ParseAmount(s)
}
