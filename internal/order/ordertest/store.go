// Package ordertest provides an in-memory order.Store. Transactions are
// serialized by a single mutex, which stands in for row locks, and every
// failed transaction restores the state it started from.
package ordertest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MikeMC777/ecom-checkout/internal/cart"
	"github.com/MikeMC777/ecom-checkout/internal/order"
	"github.com/MikeMC777/ecom-checkout/internal/product"
	"github.com/shopspring/decimal"
)

type state struct {
	products map[string]product.Product
	carts    map[string][]cart.Line
	orders   map[string]order.Order
	items    map[string][]order.Item
	numbers  map[string]bool
}

func (s state) clone() state {
	c := state{
		products: make(map[string]product.Product, len(s.products)),
		carts:    make(map[string][]cart.Line, len(s.carts)),
		orders:   make(map[string]order.Order, len(s.orders)),
		items:    make(map[string][]order.Item, len(s.items)),
		numbers:  make(map[string]bool, len(s.numbers)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]cart.Line(nil), v...)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]order.Item(nil), v...)
	}
	for k, v := range s.numbers {
		c.numbers[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st state

	// FailOn makes the named Tx method return the error, e.g. "ClearCart".
	FailOn map[string]error
}

func New() *Store {
	return &Store{st: state{
		products: map[string]product.Product{},
		carts:    map[string][]cart.Line{},
		orders:   map[string]order.Order{},
		items:    map[string][]order.Item{},
		numbers:  map[string]bool{},
	}}
}

// AddProduct inserts or replaces a product.
func (s *Store) AddProduct(id, name, price string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[id] = product.Product{
		ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

// UpdateProduct applies fn to a stored product.
func (s *Store) UpdateProduct(id string, fn func(p *product.Product)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.st.products[id]
	fn(&p)
	s.st.products[id] = p
}

// DeleteProduct mirrors ON DELETE SET NULL on order lines and CASCADE on carts.
func (s *Store) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteProduct(id)
}

func (s *Store) deleteProduct(id string) {
	delete(s.st.products, id)
	for oid, items := range s.st.items {
		for i := range items {
			if items[i].ProductID != nil && *items[i].ProductID == id {
				items[i].ProductID = nil
			}
		}
		s.st.items[oid] = items
	}
	for uid, lines := range s.st.carts {
		kept := lines[:0]
		for _, l := range lines {
			if l.ProductID != id {
				kept = append(kept, l)
			}
		}
		s.st.carts[uid] = kept
	}
}

// AddToCart upserts a cart line without checking the product exists.
func (s *Store) AddToCart(userID, productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.st.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += qty
			return
		}
	}
	s.st.carts[userID] = append(lines, cart.Line{UserID: userID, ProductID: productID, Quantity: qty})
}

func (s *Store) Product(id string) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

func (s *Store) Cart(userID string) []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cart.Line(nil), s.st.carts[userID]...)
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.st.items {
		n += len(v)
	}
	return n
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx order.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.clone()
	defer func() {
		if r := recover(); r != nil {
			s.st = saved
			panic(r)
		}
		if err != nil {
			s.st = saved
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{s: s})
}

func (s *Store) Get(_ context.Context, id string) (*order.Order, []order.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	return &o, append([]order.Item{}, s.st.items[id]...), nil
}

func (s *Store) ListByUser(_ context.Context, userID string, limit, offset int) ([]order.Order, error) {
	return s.list(func(o order.Order) bool { return o.UserID == userID }, limit, offset), nil
}

func (s *Store) List(_ context.Context, q order.ListQuery) ([]order.Order, error) {
	return s.list(func(o order.Order) bool { return q.Status == "" || o.Status == q.Status }, q.Limit, q.Offset), nil
}

func (s *Store) list(keep func(order.Order) bool, limit, offset int) []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []order.Order{}
	for _, o := range s.st.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []order.Order{}
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end]
}

// tx runs with Store.mu held.
type tx struct{ s *Store }

func (t *tx) fail(op string) error {
	if err, ok := t.s.FailOn[op]; ok {
		return err
	}
	return nil
}

func (t *tx) CartLines(_ context.Context, userID string) ([]cart.Line, error) {
	if err := t.fail("CartLines"); err != nil {
		return nil, err
	}
	lines := append([]cart.Line(nil), t.s.st.carts[userID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (t *tx) ClearCart(_ context.Context, userID string) error {
	if err := t.fail("ClearCart"); err != nil {
		return err
	}
	delete(t.s.st.carts, userID)
	return nil
}

func (t *tx) LockProducts(_ context.Context, ids []string) (map[string]product.Product, error) {
	if err := t.fail("LockProducts"); err != nil {
		return nil, err
	}
	out := make(map[string]product.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.s.st.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *tx) DecrementStock(_ context.Context, productID string, qty int) (bool, error) {
	if err := t.fail("DecrementStock"); err != nil {
		return false, err
	}
	p, ok := t.s.st.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	t.s.st.products[productID] = p
	return true, nil
}

func (t *tx) IncrementStock(_ context.Context, productID string, qty int) error {
	if err := t.fail("IncrementStock"); err != nil {
		return err
	}
	if p, ok := t.s.st.products[productID]; ok {
		p.Stock += qty
		t.s.st.products[productID] = p
	}
	return nil
}

func (t *tx) InsertOrder(_ context.Context, o *order.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	if t.s.st.numbers[o.OrderNumber] {
		return fmt.Errorf("duplicate order number %s", o.OrderNumber)
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	t.s.st.orders[o.ID] = *o
	t.s.st.numbers[o.OrderNumber] = true
	return nil
}

func (t *tx) InsertItem(_ context.Context, it *order.Item) error {
	if err := t.fail("InsertItem"); err != nil {
		return err
	}
	if _, ok := t.s.st.orders[it.OrderID]; !ok {
		return errors.New("order_items: order does not exist")
	}
	t.s.st.items[it.OrderID] = append(t.s.st.items[it.OrderID], *it)
	return nil
}

func (t *tx) LockOrder(_ context.Context, id string) (*order.Order, error) {
	if err := t.fail("LockOrder"); err != nil {
		return nil, err
	}
	o, ok := t.s.st.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (t *tx) Items(_ context.Context, orderID string) ([]order.Item, error) {
	if err := t.fail("Items"); err != nil {
		return nil, err
	}
	return append([]order.Item{}, t.s.st.items[orderID]...), nil
}

func (t *tx) SetStatus(_ context.Context, id string, st order.Status, ps order.PaymentStatus) error {
	if err := t.fail("SetStatus"); err != nil {
		return err
	}
	o, ok := t.s.st.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status, o.PaymentStatus, o.UpdatedAt = st, ps, time.Now()
	t.s.st.orders[id] = o
	return nil
}
