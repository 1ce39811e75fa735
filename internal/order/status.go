package order

import "fmt"

type Actor int

const (
	ActorCustomer Actor = iota
	ActorAdmin
)

// CheckTransition validates moving an order from one status to another.
//
// Customers may only cancel a pending order. Administrators may set any
// status while the order is not terminal; delivered and cancelled orders
// never leave their state. Same-status updates are rejected here and
// treated as no-ops by callers.
func CheckTransition(from, to Status, actor Actor) error {
	if _, ok := ParseStatus(string(to)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, from)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if actor == ActorCustomer && (from != StatusPending || to != StatusCancelled) {
		return fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
	}
	return nil
}
