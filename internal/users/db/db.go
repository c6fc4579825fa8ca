package db

import (
	"context"

	"github.com/uptrace/bun"

	"storefront/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) Insert(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}

// ListIDsByRole returns the IDs of every user holding the given role.
func (d *DB) ListIDsByRole(ctx context.Context, role models.Role) ([]string, error) {
	ids := []string{}
	err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Column("id").
		Where("role = ?", role).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
