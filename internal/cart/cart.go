// Package cart stores per-user cart lines, unique per (user, product).
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single cart line, including quantities accumulated by
// repeated adds.
const MaxQuantity = 9999

var (
	ErrNotFound         = errors.New("cart line not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrQuantityTooLarge = fmt.Errorf("quantity must be at most %d", MaxQuantity)
)

// CheckQuantity validates a requested line quantity.
func CheckQuantity(qty int) error {
	switch {
	case qty < 1:
		return ErrInvalidQuantity
	case qty > MaxQuantity:
		return ErrQuantityTooLarge
	}
	return nil
}

// Line is a persisted cart row.
type Line struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Item is a Line joined with the live product row.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	Price     decimal.Decimal `json:"price" swaggertype:"string"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

type Repository interface {
	Items(ctx context.Context, userID string) ([]Item, error)
	Add(ctx context.Context, userID, productID string, qty int) (*Line, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (*Line, error)
	Remove(ctx context.Context, userID, productID string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Items(ctx context.Context, userID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT c.product_id, p.name, p.image_url, p.price::text, p.stock, c.quantity, c.created_at
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.product_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.ImageURL, &it.Price, &it.Stock, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Add inserts the line or increases the quantity of an existing one. An
// increase that would pass MaxQuantity leaves the line untouched.
func (r *PGRepo) Add(ctx context.Context, userID, productID string, qty int) (*Line, error) {
	if err := CheckQuantity(qty); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		INSERT INTO cart (user_id, product_id, quantity, created_at, updated_at)
		SELECT $1, p.id, $3, NOW(), NOW() FROM products p WHERE p.id = $2
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity, updated_at = NOW()
		WHERE cart.quantity + EXCLUDED.quantity <= $4
		RETURNING quantity
	`, userID, productID, qty, MaxQuantity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	l := &Line{UserID: userID, ProductID: productID}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		rows.Close()
		return nil, r.whyNotAdded(ctx, userID, productID)
	}
	if err := rows.Scan(&l.Quantity); err != nil {
		return nil, err
	}
	return l, rows.Err()
}

// whyNotAdded tells a missing product apart from a line already at the cap.
func (r *PGRepo) whyNotAdded(ctx context.Context, userID, productID string) error {
	var inCart bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cart WHERE user_id = $1 AND product_id = $2)`,
		userID, productID,
	).Scan(&inCart)
	if err != nil {
		return err
	}
	if inCart {
		return ErrQuantityTooLarge
	}
	return ErrProductNotFound
}

func (r *PGRepo) SetQuantity(ctx context.Context, userID, productID string, qty int) (*Line, error) {
	if err := CheckQuantity(qty); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE cart SET quantity = $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
	`, userID, productID, qty)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return &Line{UserID: userID, ProductID: productID, Quantity: qty}, nil
}

func (r *PGRepo) Remove(ctx context.Context, userID, productID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM cart WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
