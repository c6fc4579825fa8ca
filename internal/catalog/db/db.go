package db

import (
	"context"

	"github.com/uptrace/bun"

	"storefront/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := d.Bun.NewSelect().
		Model(&product).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (d *DB) Insert(ctx context.Context, product *models.Product) error {
	_, err := d.Bun.NewInsert().Model(product).Exec(ctx)
	return err
}

func (d *DB) Update(ctx context.Context, product *models.Product) error {
	_, err := d.Bun.NewUpdate().
		Model(product).
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) Delete(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Product)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) List(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	products := []models.Product{}

	query := d.Bun.NewSelect().Model(&products)

	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.SellerID != "" {
		query = query.Where("seller_id = ?", q.SellerID)
	}
	if q.PriceMin > 0 {
		query = query.Where("price >= ?", q.PriceMin)
	}
	if q.PriceMax > 0 {
		query = query.Where("price <= ?", q.PriceMax)
	}

	switch q.SortBy {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	default:
		query = query.Order("created_at DESC")
	}

	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return products, nil
}
