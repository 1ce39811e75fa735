package ordertest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/MikeMC777/ecom-checkout/internal/product"
)

// ProductRepo is a product.Repository over the Store's catalog. Deleting a
// product detaches it from order lines the same way the schema does.
type ProductRepo struct{ s *Store }

func (s *Store) ProductRepo() *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) Create(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.st.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// List matches q against name and description, newest first.
func (r *ProductRepo) List(_ context.Context, q product.Query) ([]product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := []product.Product{}
	for _, p := range r.s.st.products {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if q.Offset >= len(out) {
		return []product.Product{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *ProductRepo) Update(_ context.Context, id string, in product.Patch) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	p.UpdatedAt = time.Now()
	r.s.st.products[id] = p
	return &p, nil
}

func (r *ProductRepo) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.products[id]; !ok {
		return false, nil
	}
	r.s.deleteProduct(id)
	return true, nil
}
