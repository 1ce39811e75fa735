package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                 = errors.New("order not found")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidTransition        = errors.New("invalid status transition")
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

// InvalidInputError reports a malformed checkout request field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a caller error that must not be retried as-is.
func IsValidation(err error) bool {
	var (
		pnf *ProductNotFoundError
		ins *InsufficientStockError
		inv *InvalidInputError
	)
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrUnsupportedPaymentMethod) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.As(err, &pnf) || errors.As(err, &ins) || errors.As(err, &inv)
}
