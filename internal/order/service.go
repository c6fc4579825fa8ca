package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/notification"
	"storefront/internal/realtime"
	"storefront/internal/utils"
)

type DBLayer interface {
	CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderWithItems(ctx context.Context, id string) (*models.OrderWithItems, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (bool, error)
	UpdateOrderPayment(ctx context.Context, id, intentID string, status models.PaymentStatus) error
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]models.OrderWithItems, error)
	ListOrdersBySeller(ctx context.Context, sellerID string) ([]models.Order, error)
}

type Notifier interface {
	Publish(ctx context.Context, ev notification.Event) (*models.Notification, error)
}

type Broadcaster interface {
	Publish(room string, ev realtime.Event)
}

type EventPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CouponRedeemer interface {
	Redeem(ctx context.Context, code, sellerID string, items []models.CartItem) (float64, error)
}

type PaymentProvider interface {
	CreateIntent(ctx context.Context, order *models.Order) (clientSecret, intentID string, err error)
}

type OrderService struct {
	DB       DBLayer
	Carts    CartStore
	Coupons  CouponRedeemer
	Notifier Notifier
	Hub      Broadcaster
	Kafka    EventPublisher
	Payments PaymentProvider
	Topics   config.TopicConfig
	Logger   *logger.Logger
}

func NewOrderService(db DBLayer, carts CartStore, coupons CouponRedeemer, notifier Notifier, hub Broadcaster, kafka EventPublisher, payments PaymentProvider, topics config.TopicConfig, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:       db,
		Carts:    carts,
		Coupons:  coupons,
		Notifier: notifier,
		Hub:      hub,
		Kafka:    kafka,
		Payments: payments,
		Topics:   topics,
		Logger:   log,
	}
}

// RequestTransition validates and applies a status change. It is the
// sole writer of Order.status. On success exactly one notification is
// produced for the buyer, the order room receives an order-updated
// broadcast, and a status event is streamed to Kafka.
func (s *OrderService) RequestTransition(ctx context.Context, p auth.Principal, orderID string, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}

	ord, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}

	switch p.Role {
	case models.RoleAdmin:
	case models.RoleSeller:
		if ord.SellerID != p.UserID {
			return nil, fmt.Errorf("%w: order belongs to another seller", ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%w: role %s may not change order status", ErrForbidden, p.Role)
	}

	if !CanTransition(ord.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.Status, next)
	}

	now := time.Now()
	applied, err := s.DB.UpdateOrderStatus(ctx, orderID, ord.Status, next, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	if !applied {
		// A concurrent transition won the conditional write; the
		// persisted status is no longer what this request validated
		// against, so this request loses (first-wins).
		return nil, fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, orderID)
	}

	s.Logger.LogOrder("STATUS", orderID, fmt.Sprintf("%s -> %s by %s", ord.Status, next, p.UserID))

	ord.Status = next
	ord.UpdatedAt = now

	if _, err := s.Notifier.Publish(ctx, notification.Event{
		RecipientID: ord.BuyerID,
		OrderID:     ord.OrderID,
		Message:     fmt.Sprintf("Your order %s is now %s", ord.Number, next),
	}); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to notify buyer of order %s: %v", orderID, err))
	}

	s.Hub.Publish(realtime.OrderRoom(ord.OrderID), realtime.Event{
		Type:    realtime.EventOrderUpdated,
		OrderID: ord.OrderID,
	})

	s.publishEvent(s.Topics.OrderStatus, models.OrderEvent{
		Type:      "status",
		OrderID:   ord.OrderID,
		Number:    ord.Number,
		BuyerID:   ord.BuyerID,
		SellerID:  ord.SellerID,
		Status:    next,
		Total:     ord.Total,
		CreatedAt: now,
	})

	return ord, nil
}

// Checkout turns the caller's cart into pending orders, one per seller,
// snapshotting prices and the shipping address. A coupon code is
// redeemed against the issuing seller's items only.
func (s *OrderService) Checkout(ctx context.Context, p auth.Principal, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if req.PaymentMethod != "card" && req.PaymentMethod != "cod" {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, req.PaymentMethod)
	}
	if req.ShippingAddress.Name == "" || req.ShippingAddress.Street == "" || req.ShippingAddress.City == "" {
		return nil, fmt.Errorf("%w: incomplete shipping address", ErrValidation)
	}

	cart, err := s.Carts.GetCart(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	bySeller := make(map[string][]models.CartItem)
	for _, item := range cart.Items {
		bySeller[item.SellerID] = append(bySeller[item.SellerID], item)
	}

	now := time.Now()
	resp := &models.CheckoutResponse{ClientSecrets: make(map[string]string)}

	for sellerID, items := range bySeller {
		var subtotal float64
		for _, item := range items {
			subtotal += item.UnitPrice * float64(item.Quantity)
		}

		var discount float64
		couponCode := ""
		if req.CouponCode != "" && s.Coupons != nil {
			amount, err := s.Coupons.Redeem(ctx, req.CouponCode, sellerID, items)
			if err != nil {
				s.Logger.Warn("ORDER", fmt.Sprintf("Coupon %s not applied for seller %s: %v", req.CouponCode, sellerID, err))
			} else if amount > 0 {
				discount = amount
				couponCode = req.CouponCode
			}
		}

		ord := models.Order{
			OrderID:       uuid.NewString(),
			Number:        utils.GenerateOrderNumber(),
			BuyerID:       p.UserID,
			SellerID:      sellerID,
			Status:        models.StatusPending,
			PaymentMethod: req.PaymentMethod,
			PaymentStatus: models.PaymentUnpaid,
			CouponCode:    couponCode,
			Subtotal:      subtotal,
			Discount:      discount,
			Total:         subtotal - discount,
			ShipName:      req.ShippingAddress.Name,
			ShipStreet:    req.ShippingAddress.Street,
			ShipCity:      req.ShippingAddress.City,
			ShipPostal:    req.ShippingAddress.Postal,
			ShipCountry:   req.ShippingAddress.Country,
			CreatedAt:     now,
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			orderItems = append(orderItems, models.OrderItem{
				ID:          uuid.NewString(),
				OrderID:     ord.OrderID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Size:        item.Size,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			})
		}

		if err := s.DB.CreateOrder(ctx, ord, orderItems); err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		s.Logger.LogOrder("CREATE", ord.OrderID, fmt.Sprintf("buyer=%s seller=%s total=%.2f", ord.BuyerID, ord.SellerID, ord.Total))

		if req.PaymentMethod == "card" && s.Payments != nil {
			clientSecret, intentID, err := s.Payments.CreateIntent(ctx, &ord)
			if err != nil {
				s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to create payment intent for order %s: %v", ord.OrderID, err))
			} else {
				ord.PaymentIntentID = intentID
				if err := s.DB.UpdateOrderPayment(ctx, ord.OrderID, intentID, models.PaymentUnpaid); err != nil {
					s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to store payment intent for order %s: %v", ord.OrderID, err))
				}
				resp.ClientSecrets[ord.OrderID] = clientSecret
			}
		}

		if _, err := s.Notifier.Publish(ctx, notification.Event{
			RecipientID: sellerID,
			OrderID:     ord.OrderID,
			Message:     fmt.Sprintf("New order %s received (%d items)", ord.Number, len(orderItems)),
		}); err != nil {
			s.Logger.Error("ORDER", fmt.Sprintf("Failed to notify seller %s of order %s: %v", sellerID, ord.OrderID, err))
		}

		s.publishEvent(s.Topics.OrderCreated, models.OrderEvent{
			Type:      "created",
			OrderID:   ord.OrderID,
			Number:    ord.Number,
			BuyerID:   ord.BuyerID,
			SellerID:  ord.SellerID,
			Status:    ord.Status,
			Total:     ord.Total,
			CreatedAt: now,
		})

		resp.Orders = append(resp.Orders, models.OrderWithItems{Order: ord, Items: orderItems})
	}

	if err := s.Carts.ClearCart(ctx, p.UserID); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to clear cart for user %s: %v", p.UserID, err))
	}

	return resp, nil
}

// TrackOrder returns the order with items for the buyer-facing tracking
// view. The owning buyer, the order's seller, and admins may read it.
func (s *OrderService) TrackOrder(ctx context.Context, p auth.Principal, orderID string) (*models.OrderWithItems, error) {
	ord, err := s.DB.GetOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	if err := canRead(p, &ord.Order); err != nil {
		return nil, err
	}
	return ord, nil
}

// GetSellerOrder is the seller-dashboard fetch.
func (s *OrderService) GetSellerOrder(ctx context.Context, p auth.Principal, orderID string) (*models.OrderWithItems, error) {
	ord, err := s.DB.GetOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	if !p.IsAdmin() && !(p.Role == models.RoleSeller && ord.SellerID == p.UserID) {
		return nil, fmt.Errorf("%w: order belongs to another seller", ErrForbidden)
	}
	return ord, nil
}

// ListMyOrders returns the caller's order history, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, p auth.Principal) ([]models.OrderWithItems, error) {
	return s.DB.ListOrdersByBuyer(ctx, p.UserID)
}

// ListSellerOrders returns all orders for the calling seller's products.
func (s *OrderService) ListSellerOrders(ctx context.Context, p auth.Principal) ([]models.Order, error) {
	if p.Role != models.RoleSeller && !p.IsAdmin() {
		return nil, fmt.Errorf("%w: role %s has no seller dashboard", ErrForbidden, p.Role)
	}
	return s.DB.ListOrdersBySeller(ctx, p.UserID)
}

// CanWatchOrder authorizes joining an order room from the transport
// layer.
func (s *OrderService) CanWatchOrder(ctx context.Context, p auth.Principal, orderID string) error {
	ord, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	return canRead(p, ord)
}

// MarkPaid records a successful payment capture reported by the gateway
// webhook and tells the buyer.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string) error {
	ord, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	if ord.PaymentStatus == models.PaymentPaid {
		return nil
	}

	if err := s.DB.UpdateOrderPayment(ctx, ord.OrderID, ord.PaymentIntentID, models.PaymentPaid); err != nil {
		return fmt.Errorf("failed to mark order %s paid: %w", orderID, err)
	}

	if _, err := s.Notifier.Publish(ctx, notification.Event{
		RecipientID: ord.BuyerID,
		OrderID:     ord.OrderID,
		Message:     fmt.Sprintf("Payment received for order %s", ord.Number),
	}); err != nil {
		s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to notify buyer of payment for %s: %v", orderID, err))
	}
	return nil
}

func canRead(p auth.Principal, ord *models.Order) error {
	if p.IsAdmin() || ord.BuyerID == p.UserID || (p.Role == models.RoleSeller && ord.SellerID == p.UserID) {
		return nil
	}
	return fmt.Errorf("%w: not your order", ErrForbidden)
}

func (s *OrderService) publishEvent(topic string, ev models.OrderEvent) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(ev)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to marshal order event: %v", err))
		return
	}
	if err := s.Kafka.Publish(topic, ev.OrderID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish order event to %s: %v", topic, err))
	}
}
