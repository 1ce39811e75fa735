package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	// NUMERIC in Postgres, serialized as a JSON string
	Price     decimal.Decimal `json:"price" swaggertype:"string" example:"199.90"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HTTPError represents a standard error in JSON.
// swagger:model
type HTTPError struct {
	// example: not found
	Error string `json:"error"`
}

// ListResponse represents the paginated response of products.
// swagger:model
type ListResponse struct {
	Q      string    `json:"q,omitempty"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Items  []Product `json:"items"`
}

// CreateProductRequest payload of creation.
// swagger:model CreateProductRequest
type CreateProductRequest struct {
	Name        string `json:"name"        example:"Mechanical Keyboard"`
	Description string `json:"description" example:"RGB 60%"`
	ImageURL    string `json:"image_url"   example:"https://cdn.example.com/kb.png"`
	Price       string `json:"price"       example:"199.90"`
	Stock       int    `json:"stock"       example:"10"`
}

// UpdateProductRequest payload of partial update. Omitted fields keep their value.
// swagger:model UpdateProductRequest
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	Price       *string `json:"price"`
	Stock       *int    `json:"stock"`
}

// Patch is the validated form of UpdateProductRequest.
type Patch struct {
	Name        *string
	Description *string
	ImageURL    *string
	Price       *decimal.Decimal
	Stock       *int
}
