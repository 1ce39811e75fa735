package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate_UnderThreshold_ChargesShipping(t *testing.T) {
	s := Calculate([]Line{{UnitPrice: d("60.00"), Quantity: 1}})

	sub, ship, tax, total := s.Fixed()
	assert.Equal(t, "60.00", sub)
	assert.Equal(t, "10.00", ship)
	assert.Equal(t, "10.80", tax)
	assert.Equal(t, "80.80", total)
}

func TestCalculate_OverThreshold_FreeShipping(t *testing.T) {
	s := Calculate([]Line{{UnitPrice: d("120.00"), Quantity: 1}})

	sub, ship, tax, total := s.Fixed()
	assert.Equal(t, "120.00", sub)
	assert.Equal(t, "0.00", ship)
	assert.Equal(t, "21.60", tax)
	assert.Equal(t, "141.60", total)
}

func TestCalculate_ExactlyHundred_StillCharged(t *testing.T) {
	s := Calculate([]Line{{UnitPrice: d("25.00"), Quantity: 4}})
	assert.True(t, s.Shipping.Equal(FlatShipping))

	s = Calculate([]Line{{UnitPrice: d("100.01"), Quantity: 1}})
	assert.True(t, s.Shipping.IsZero())
}

func TestCalculate_MultipleLines(t *testing.T) {
	s := Calculate([]Line{
		{UnitPrice: d("19.99"), Quantity: 3},
		{UnitPrice: d("5.50"), Quantity: 2},
	})
	assert.Equal(t, "70.97", s.Subtotal.StringFixed(2))
	// 70.97 * 0.18 = 12.7746
	assert.Equal(t, "12.77", s.Tax.StringFixed(2))
	assert.Equal(t, "93.74", s.Total.StringFixed(2))
}

func TestCalculate_TaxRoundsHalfUp(t *testing.T) {
	// 0.25 * 0.18 = 0.045
	s := ForSubtotal(d("0.25"))
	assert.Equal(t, "0.05", s.Tax.StringFixed(2))
}

func TestCalculate_Empty(t *testing.T) {
	s := Calculate(nil)
	assert.True(t, s.Subtotal.IsZero())
	assert.Equal(t, "10.00", s.Total.StringFixed(2))
}

func TestForSubtotal_Law(t *testing.T) {
	for cents := int64(0); cents <= 30000; cents += 37 {
		x := decimal.New(cents, -2)
		s := ForSubtotal(x)

		wantShip := d("10")
		if x.GreaterThan(d("100")) {
			wantShip = decimal.Zero
		}
		wantTax := x.Mul(d("0.18")).Round(2)

		if !s.Shipping.Equal(wantShip) || !s.Tax.Equal(wantTax) {
			t.Fatalf("subtotal=%s shipping=%s tax=%s", x, s.Shipping, s.Tax)
		}
		if !s.Total.Equal(x.Add(wantShip).Add(wantTax)) {
			t.Fatalf("subtotal=%s total=%s", x, s.Total)
		}
	}
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "29.97", Line{UnitPrice: d("9.99"), Quantity: 3}.Total().StringFixed(2))
}
