package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          string    `bun:"id,pk" json:"id"`
	SellerID    string    `bun:"seller_id,notnull" json:"seller_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Category    string    `bun:"category,nullzero" json:"category,omitempty"`
	Price       float64   `bun:"price,notnull" json:"price"`
	Sizes       []string  `bun:"sizes,array" json:"sizes,omitempty"`
	Stock       int       `bun:"stock" json:"stock"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// ProductQuery carries catalog browse/search filters. Zero values mean
// "no filter".
type ProductQuery struct {
	Search   string
	Category string
	SellerID string
	PriceMin float64
	PriceMax float64
	SortBy   string // "price_asc", "price_desc", "newest"
	Limit    int
	Offset   int
}
