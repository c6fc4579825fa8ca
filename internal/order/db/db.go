package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"storefront/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// CreateOrder → insert the order and its line items.
func (d *DB) CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) error {
	if _, err := d.Bun.NewInsert().Model(&order).Exec(ctx); err != nil {
		return err
	}
	if len(items) > 0 {
		if _, err := d.Bun.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GetOrderByID → fetch one order by its ID.
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderWithItems retrieves an order and its line items.
func (d *DB) GetOrderWithItems(ctx context.Context, id string) (*models.OrderWithItems, error) {
	order, err := d.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items := []models.OrderItem{}
	err = d.Bun.NewSelect().
		Model(&items).
		Where("order_id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &models.OrderWithItems{Order: *order, Items: items}, nil
}

// UpdateOrderStatus applies a conditional status write: the row is only
// touched when the stored status still equals the one the transition was
// validated against. Returns false when a concurrent transition won.
func (d *DB) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", at).
		Where("order_id = ?", id).
		Where("status = ?", from).
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

// UpdateOrderPayment → record the payment intent and payment status.
func (d *DB) UpdateOrderPayment(ctx context.Context, id, intentID string, status models.PaymentStatus) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_intent_id = ?", intentID).
		Set("payment_status = ?", status).
		Where("order_id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- RELATION QUERIES ----------------

// ListOrdersByBuyer → all orders with items for a buyer, newest first.
func (d *DB) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]models.OrderWithItems, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []models.OrderWithItems{}, nil
	}

	orderIDs := make([]string, len(orders))
	for i, order := range orders {
		orderIDs[i] = order.OrderID
	}

	var items []models.OrderItem
	err = d.Bun.NewSelect().
		Model(&items).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	itemsByOrder := make(map[string][]models.OrderItem)
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	result := make([]models.OrderWithItems, len(orders))
	for i, order := range orders {
		result[i] = models.OrderWithItems{Order: order, Items: itemsByOrder[order.OrderID]}
		if result[i].Items == nil {
			result[i].Items = []models.OrderItem{}
		}
	}
	return result, nil
}

// ListOrdersBySeller → all orders addressed to a seller, newest first.
func (d *DB) ListOrdersBySeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
