package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        string    `bun:"id,pk" json:"_id"`
	UserID    string    `bun:"user_id,notnull" json:"-"`
	OrderID   string    `bun:"order_id,nullzero" json:"orderId,omitempty"`
	Message   string    `bun:"message,notnull" json:"message"`
	IsRead    bool      `bun:"is_read" json:"isRead"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}
