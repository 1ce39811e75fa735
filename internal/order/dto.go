package order

import "time"

// APIVersion tags every order response body.
const APIVersion = "v1"

// CheckoutRequest payload of POST /v1/checkout.
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	ShippingAddress Address `json:"shipping_address"`
	PaymentMethod   string  `json:"payment_method" example:"cash_on_delivery" enums:"cash_on_delivery,bank_transfer,card"`
	Notes           string  `json:"notes,omitempty" example:"Ring twice"`
}

// CheckoutResponse is the body of a successful checkout.
// swagger:model CheckoutResponse
type CheckoutResponse struct {
	Version     string `json:"version"      example:"v1"`
	OrderID     string `json:"order_id"     example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	OrderNumber string `json:"order_number" example:"ORD-1718000000000-b2f5ff47"`
	Status      Status `json:"status"       example:"pending"`
	Subtotal    string `json:"subtotal"     example:"60.00"`
	Shipping    string `json:"shipping"     example:"10.00"`
	Tax         string `json:"tax"          example:"10.80"`
	Total       string `json:"total"        example:"80.80"`
}

func NewCheckoutResponse(o *Order) CheckoutResponse {
	return CheckoutResponse{
		Version:     APIVersion,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Subtotal:    o.Subtotal.StringFixed(2),
		Shipping:    o.Shipping.StringFixed(2),
		Tax:         o.Tax.StringFixed(2),
		Total:       o.Total.StringFixed(2),
	}
}

// ItemView is one order line as returned by the API.
type ItemView struct {
	ID           string  `json:"id"`
	ProductID    *string `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image,omitempty"`
	Quantity     int     `json:"quantity"`
	Price        string  `json:"price"`
	Total        string  `json:"total"`
}

// OrderView is the order summary used in listings.
type OrderView struct {
	ID              string        `json:"id"`
	OrderNumber     string        `json:"order_number"`
	UserID          string        `json:"user_id"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Subtotal        string        `json:"subtotal"`
	Shipping        string        `json:"shipping"`
	Tax             string        `json:"tax"`
	Total           string        `json:"total"`
	ShippingAddress Address       `json:"shipping_address"`
	Notes           string        `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OrderResponse is the body of GET /orders/:id and of status updates.
// swagger:model OrderResponse
type OrderResponse struct {
	Version string     `json:"version"`
	Order   OrderView  `json:"order"`
	Items   []ItemView `json:"items"`
}

// OrderListResponse is the body of order listings.
// swagger:model OrderListResponse
type OrderListResponse struct {
	Version string      `json:"version"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Orders  []OrderView `json:"orders"`
}

// UpdateStatusRequest payload of PUT /v1/admin/orders/:id/status.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"shipped" enums:"pending,processing,shipped,delivered,cancelled"`
}

func NewOrderView(o Order) OrderView {
	return OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentMethod:   o.PaymentMethod,
		Subtotal:        o.Subtotal.StringFixed(2),
		Shipping:        o.Shipping.StringFixed(2),
		Tax:             o.Tax.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func NewOrderResponse(o *Order, items []Item) OrderResponse {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, ItemView{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			Quantity:     it.Quantity,
			Price:        it.Price.StringFixed(2),
			Total:        it.Total.StringFixed(2),
		})
	}
	return OrderResponse{Version: APIVersion, Order: NewOrderView(*o), Items: views}
}

func NewOrderListResponse(orders []Order, limit, offset int) OrderListResponse {
	limit, offset = normalizePage(limit, offset)
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, NewOrderView(o))
	}
	return OrderListResponse{Version: APIVersion, Limit: limit, Offset: offset, Orders: views}
}
