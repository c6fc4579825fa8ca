package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CouponType string

const (
	CouponPercentage CouponType = "PERCENTAGE"
	CouponFlatOff    CouponType = "FLAT_OFF"
	CouponBuyNGetN   CouponType = "BUY_N_GET_N_FREE"
)

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	Code         string     `bun:"code,pk" json:"code"`
	SellerID     string     `bun:"seller_id,notnull" json:"seller_id"`
	Type         CouponType `bun:"type,notnull" json:"type"`
	Percentage   *float64   `bun:"percentage,nullzero" json:"percentage,omitempty"`
	Amount       *float64   `bun:"amount,nullzero" json:"amount,omitempty"`
	MaxDiscount  *float64   `bun:"max_discount,nullzero" json:"max_discount,omitempty"`
	MinSpend     *float64   `bun:"min_spend,nullzero" json:"min_spend,omitempty"`
	BuyQuantity  *int       `bun:"buy_quantity,nullzero" json:"buy_quantity,omitempty"`
	GetQuantity  *int       `bun:"get_quantity,nullzero" json:"get_quantity,omitempty"`
	ProductIDs   []string   `bun:"product_ids,array" json:"product_ids,omitempty"`
	Active       bool       `bun:"active" json:"active"`
	ActiveFrom   time.Time  `bun:"active_from,notnull" json:"active_from"`
	ExpiresAt    time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	MaxUsage     int        `bun:"max_usage" json:"max_usage"`
	CurrentUsage int        `bun:"current_usage" json:"current_usage"`
	CreatedAt    time.Time  `bun:"created_at,notnull" json:"created_at"`
}
