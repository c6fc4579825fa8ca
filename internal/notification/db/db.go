package db

import (
	"context"

	"github.com/uptrace/bun"

	"storefront/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// Insert → persist a new notification (durability before delivery).
func (d *DB) Insert(ctx context.Context, n *models.Notification) error {
	_, err := d.Bun.NewInsert().Model(n).Exec(ctx)
	return err
}

// GetByID → fetch one notification by its ID.
func (d *DB) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	err := d.Bun.NewSelect().
		Model(&n).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser → all notifications for a recipient, newest first.
func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := d.Bun.NewSelect().
		Model(&notifications).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead → set the read flag on one notification.
func (d *DB) MarkRead(ctx context.Context, id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("is_read = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkAllRead → set the read flag on all of a user's notifications.
func (d *DB) MarkAllRead(ctx context.Context, userID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("is_read = ?", true).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

// Delete → remove one notification.
func (d *DB) Delete(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Notification)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteAllByUser → remove all of a user's notifications.
func (d *DB) DeleteAllByUser(ctx context.Context, userID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Notification)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
