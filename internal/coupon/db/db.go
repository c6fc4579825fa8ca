package db

import (
	"context"

	"github.com/uptrace/bun"

	"storefront/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (d *DB) Insert(ctx context.Context, coupon *models.Coupon) error {
	_, err := d.Bun.NewInsert().Model(coupon).Exec(ctx)
	return err
}

func (d *DB) Update(ctx context.Context, coupon *models.Coupon) error {
	_, err := d.Bun.NewUpdate().
		Model(coupon).
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) Delete(ctx context.Context, code string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Coupon)(nil)).
		Where("code = ?", code).
		Exec(ctx)
	return err
}

func (d *DB) ListBySeller(ctx context.Context, sellerID string) ([]models.Coupon, error) {
	coupons := []models.Coupon{}
	err := d.Bun.NewSelect().
		Model(&coupons).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

// IncrementUsage bumps current_usage while the cap holds. The guard in
// the WHERE clause keeps concurrent redemptions from exceeding
// max_usage.
func (d *DB) IncrementUsage(ctx context.Context, code string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Coupon)(nil)).
		Set("current_usage = current_usage + 1").
		Where("code = ?", code).
		Where("max_usage = 0 OR current_usage < max_usage").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
