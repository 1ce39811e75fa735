package order

import (
	"context"

	"github.com/MikeMC777/ecom-checkout/internal/cart"
	"github.com/MikeMC777/ecom-checkout/internal/product"
)

// Tx is the set of operations available inside one database transaction.
// Row reads named Lock* hold their locks until the transaction ends.
type Tx interface {
	CartLines(ctx context.Context, userID string) ([]cart.Line, error)
	ClearCart(ctx context.Context, userID string) error

	// LockProducts returns the requested products keyed by id. Missing ids are
	// absent from the map.
	LockProducts(ctx context.Context, ids []string) (map[string]product.Product, error)
	// DecrementStock reports false when stock is lower than qty or the product is gone.
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID string, qty int) error

	InsertOrder(ctx context.Context, o *Order) error
	InsertItem(ctx context.Context, it *Item) error
	LockOrder(ctx context.Context, id string) (*Order, error)
	Items(ctx context.Context, orderID string) ([]Item, error)
	SetStatus(ctx context.Context, id string, st Status, ps PaymentStatus) error
}

// Store owns the connection handle. WithinTx commits when fn returns nil and
// rolls back on any error or panic.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Get(ctx context.Context, id string) (*Order, []Item, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, error)
}
