package ordertest

import (
	"context"

	"github.com/MikeMC777/ecom-checkout/internal/cart"
)

// CartRepo is a cart.Repository over the Store's carts, so cart edits and
// checkouts see the same state.
type CartRepo struct{ s *Store }

func (s *Store) CartRepo() *CartRepo { return &CartRepo{s: s} }

func (r *CartRepo) Items(_ context.Context, userID string) ([]cart.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []cart.Item
	for _, l := range r.s.st.carts[userID] {
		p, ok := r.s.st.products[l.ProductID]
		if !ok {
			continue
		}
		out = append(out, cart.Item{
			ProductID: p.ID, Name: p.Name, ImageURL: p.ImageURL,
			Price: p.Price, Stock: p.Stock, Quantity: l.Quantity,
		})
	}
	return out, nil
}

func (r *CartRepo) Add(_ context.Context, userID, productID string, qty int) (*cart.Line, error) {
	if err := cart.CheckQuantity(qty); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.products[productID]; !ok {
		return nil, cart.ErrProductNotFound
	}
	lines := r.s.st.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			if lines[i].Quantity+qty > cart.MaxQuantity {
				return nil, cart.ErrQuantityTooLarge
			}
			lines[i].Quantity += qty
			l := lines[i]
			return &l, nil
		}
	}
	l := cart.Line{UserID: userID, ProductID: productID, Quantity: qty}
	r.s.st.carts[userID] = append(lines, l)
	return &l, nil
}

func (r *CartRepo) SetQuantity(_ context.Context, userID, productID string, qty int) (*cart.Line, error) {
	if err := cart.CheckQuantity(qty); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.st.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = qty
			l := lines[i]
			return &l, nil
		}
	}
	return nil, cart.ErrNotFound
}

func (r *CartRepo) Remove(_ context.Context, userID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.st.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			r.s.st.carts[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrNotFound
}
