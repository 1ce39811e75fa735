package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/ecom-checkout/internal/cart"
	"github.com/MikeMC777/ecom-checkout/internal/product"
)

const orderColumns = `id, order_number, user_id, status, payment_status, payment_method,
	subtotal_amount::text, shipping_amount::text, tax_amount::text, total_amount::text,
	shipping_address_json, billing_address_json, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&o.ShippingAddress, &o.BillingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q querier, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_image, quantity, price::text, total::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name, id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductImage,
			&it.Quantity, &it.Price, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// PGStore is the PostgreSQL Store. Product and cart rows touched by checkout
// are locked with SELECT ... FOR UPDATE in ascending id order.
type PGStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db, timeout: 10 * time.Second} }

func (s *PGStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, nil, err
	}
	items, err := queryItems(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (s *PGStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit, offset = normalizePage(limit, offset)
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (s *PGStore) List(ctx context.Context, q ListQuery) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit, offset := normalizePage(q.Limit, q.Offset)
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3
	`, string(q.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) CartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT user_id, product_id, quantity
		FROM cart WHERE user_id = $1
		ORDER BY product_id
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.UserID, &l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart WHERE user_id = $1`, userID)
	return err
}

func (t *pgTx) LockProducts(ctx context.Context, ids []string) (map[string]product.Product, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	rows, err := t.tx.Query(ctx, `
		SELECT id, name, description, image_url, price::text, stock, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, sorted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]product.Product, len(sorted))
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *pgTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, qty, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
	`, qty, productID)
	return err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, payment_status, payment_method,
			subtotal_amount, shipping_amount, tax_amount, total_amount,
			shipping_address_json, billing_address_json, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
		RETURNING created_at, updated_at
	`, o.ID, o.OrderNumber, o.UserID, string(o.Status), string(o.PaymentStatus), string(o.PaymentMethod),
		o.Subtotal.StringFixed(2), o.Shipping.StringFixed(2), o.Tax.StringFixed(2), o.Total.StringFixed(2),
		o.ShippingAddress, o.BillingAddress, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (t *pgTx) InsertItem(ctx context.Context, it *Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_image, quantity, price, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, it.ID, it.OrderID, it.ProductID, it.ProductName, it.ProductImage, it.Quantity,
		it.Price.StringFixed(2), it.Total.StringFixed(2))
	return err
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (*Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
}

func (t *pgTx) Items(ctx context.Context, orderID string) ([]Item, error) {
	return queryItems(ctx, t.tx, orderID)
}

func (t *pgTx) SetStatus(ctx context.Context, id string, st Status, ps PaymentStatus) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1
	`, id, string(st), string(ps))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
