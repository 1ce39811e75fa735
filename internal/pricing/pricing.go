// Package pricing computes checkout totals from priced cart lines.
package pricing

import "github.com/shopspring/decimal"

var (
	// FreeShippingOver is the subtotal that must be exceeded for free shipping.
	FreeShippingOver = decimal.NewFromInt(100)
	// FlatShipping applies to every subtotal up to and including FreeShippingOver.
	FlatShipping = decimal.NewFromInt(10)
	TaxRate      = decimal.RequireFromString("0.18")
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns UnitPrice * Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Calculate prices a set of lines. Tax is rounded half away from zero to cents.
func Calculate(lines []Line) Summary {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	return ForSubtotal(subtotal)
}

func ForSubtotal(subtotal decimal.Decimal) Summary {
	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingOver) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Fixed renders the summary with two decimals, the way it is persisted and returned.
func (s Summary) Fixed() (subtotal, shipping, tax, total string) {
	return s.Subtotal.StringFixed(2), s.Shipping.StringFixed(2), s.Tax.StringFixed(2), s.Total.StringFixed(2)
}
