package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckQuantity(t *testing.T) {
	cases := []struct {
		qty  int
		want error
	}{
		{0, ErrInvalidQuantity},
		{-3, ErrInvalidQuantity},
		{1, nil},
		{MaxQuantity, nil},
		{MaxQuantity + 1, ErrQuantityTooLarge},
		{1 << 40, ErrQuantityTooLarge},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, CheckQuantity(tc.qty), tc.want, "qty=%d", tc.qty)
	}
}
