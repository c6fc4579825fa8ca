package models

import "time"

// OrderEvent is the payload published to the order topics and consumed
// by the notify worker.
type OrderEvent struct {
	Type      string      `json:"type"` // "created" or "status"
	OrderID   string      `json:"order_id"`
	Number    string      `json:"number"`
	BuyerID   string      `json:"buyer_id"`
	SellerID  string      `json:"seller_id"`
	Status    OrderStatus `json:"status"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
}
