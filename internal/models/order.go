package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a member of the five-state enum.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID         string        `bun:"order_id,pk" json:"order_id"`
	Number          string        `bun:"number,notnull" json:"number"`
	BuyerID         string        `bun:"buyer_id,notnull" json:"buyer_id"`
	SellerID        string        `bun:"seller_id,notnull" json:"seller_id"`
	Status          OrderStatus   `bun:"status,notnull" json:"status"`
	PaymentMethod   string        `bun:"payment_method,notnull" json:"payment_method"`
	PaymentStatus   PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	PaymentIntentID string        `bun:"payment_intent_id,nullzero" json:"-"`
	CouponCode      string        `bun:"coupon_code,nullzero" json:"coupon_code,omitempty"`
	Subtotal        float64       `bun:"subtotal,notnull" json:"subtotal"`
	Discount        float64       `bun:"discount" json:"discount"`
	Total           float64       `bun:"total,notnull" json:"total"`
	ShipName        string        `bun:"ship_name,notnull" json:"ship_name"`
	ShipStreet      string        `bun:"ship_street,notnull" json:"ship_street"`
	ShipCity        string        `bun:"ship_city,notnull" json:"ship_city"`
	ShipPostal      string        `bun:"ship_postal,notnull" json:"ship_postal"`
	ShipCountry     string        `bun:"ship_country,notnull" json:"ship_country"`
	CreatedAt       time.Time     `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time     `bun:"updated_at,nullzero" json:"updated_at"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID          string  `bun:"id,pk" json:"id"`
	OrderID     string  `bun:"order_id,notnull" json:"order_id"`
	ProductID   string  `bun:"product_id,notnull" json:"product_id"`
	ProductName string  `bun:"product_name,notnull" json:"product_name"`
	Size        string  `bun:"size,nullzero" json:"size,omitempty"`
	Quantity    int     `bun:"quantity,notnull" json:"quantity"`
	UnitPrice   float64 `bun:"unit_price,notnull" json:"unit_price"`
}

// ShippingAddress is the request-side snapshot copied onto the order at
// checkout. Orders never reference a mutable address record.
type ShippingAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Postal  string `json:"postal"`
	Country string `json:"country"`
}

type CheckoutRequest struct {
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CouponCode      string          `json:"coupon_code,omitempty"`
}

type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

type CheckoutResponse struct {
	Orders        []OrderWithItems  `json:"orders"`
	ClientSecrets map[string]string `json:"client_secrets,omitempty"`
}
