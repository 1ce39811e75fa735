package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus accepts only the five lifecycle values.
func ParseStatus(s string) (Status, bool) {
	for _, st := range statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool { return s == StatusDelivered || s == StatusCancelled }

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCard           PaymentMethod = "card"
)

// Accepted reports whether checkout currently honors the method.
func (m PaymentMethod) Accepted() bool {
	return m == PaymentCashOnDelivery || m == PaymentBankTransfer
}

// Address is copied into the order at placement time.
type Address struct {
	FirstName  string `json:"first_name"  example:"Ana"`
	LastName   string `json:"last_name"   example:"Gómez"`
	Phone      string `json:"phone"       example:"+57 300 000 0000"`
	Address    string `json:"address"     example:"Calle 1 # 2-3"`
	City       string `json:"city"        example:"Bogotá"`
	PostalCode string `json:"postal_code" example:"110111"`
}

type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentMethod   PaymentMethod
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress Address
	BillingAddress  Address
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is the snapshot of one purchased product. ProductID is nil once the
// product has been deleted.
type Item struct {
	ID           string
	OrderID      string
	ProductID    *string
	ProductName  string
	ProductImage string
	Quantity     int
	Price        decimal.Decimal
	Total        decimal.Decimal
}

// ListQuery filters the admin listing. Empty Status lists every order.
type ListQuery struct {
	Status Status
	Limit  int
	Offset int
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
