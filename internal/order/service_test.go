package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/notification"
	"storefront/internal/realtime"
)

// Mock implementations for testing

type MockOrderDB struct {
	orders       map[string]*models.Order
	items        map[string][]models.OrderItem
	shouldFailOn string
	errorMsg     string
}

func NewMockOrderDB() *MockOrderDB {
	return &MockOrderDB{
		orders: make(map[string]*models.Order),
		items:  make(map[string][]models.OrderItem),
	}
}

func (m *MockOrderDB) CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) error {
	if m.shouldFailOn == "CreateOrder" {
		return errors.New(m.errorMsg)
	}
	m.orders[order.OrderID] = &order
	m.items[order.OrderID] = items
	return nil
}

func (m *MockOrderDB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if m.shouldFailOn == "GetOrderByID" {
		return nil, errors.New(m.errorMsg)
	}
	ord, exists := m.orders[id]
	if !exists {
		return nil, errors.New("order not found")
	}
	copied := *ord
	return &copied, nil
}

func (m *MockOrderDB) GetOrderWithItems(ctx context.Context, id string) (*models.OrderWithItems, error) {
	ord, err := m.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.OrderWithItems{Order: *ord, Items: m.items[id]}, nil
}

func (m *MockOrderDB) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (bool, error) {
	if m.shouldFailOn == "UpdateOrderStatus" {
		return false, errors.New(m.errorMsg)
	}
	ord, exists := m.orders[id]
	if !exists || ord.Status != from {
		return false, nil
	}
	ord.Status = to
	ord.UpdatedAt = at
	return true, nil
}

func (m *MockOrderDB) UpdateOrderPayment(ctx context.Context, id, intentID string, status models.PaymentStatus) error {
	ord, exists := m.orders[id]
	if !exists {
		return errors.New("order not found")
	}
	ord.PaymentIntentID = intentID
	ord.PaymentStatus = status
	return nil
}

func (m *MockOrderDB) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]models.OrderWithItems, error) {
	result := []models.OrderWithItems{}
	for id, ord := range m.orders {
		if ord.BuyerID == buyerID {
			result = append(result, models.OrderWithItems{Order: *ord, Items: m.items[id]})
		}
	}
	return result, nil
}

func (m *MockOrderDB) ListOrdersBySeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	result := []models.Order{}
	for _, ord := range m.orders {
		if ord.SellerID == sellerID {
			result = append(result, *ord)
		}
	}
	return result, nil
}

type MockNotifier struct {
	published []notification.Event
}

func (m *MockNotifier) Publish(ctx context.Context, ev notification.Event) (*models.Notification, error) {
	m.published = append(m.published, ev)
	return &models.Notification{ID: "n1", UserID: ev.RecipientID, Message: ev.Message}, nil
}

type MockBroadcaster struct {
	events map[string][]realtime.Event
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{events: make(map[string][]realtime.Event)}
}

func (m *MockBroadcaster) Publish(room string, ev realtime.Event) {
	m.events[room] = append(m.events[room], ev)
}

type MockCartStore struct {
	cart    *models.Cart
	cleared bool
}

func (m *MockCartStore) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	return m.cart, nil
}

func (m *MockCartStore) ClearCart(ctx context.Context, userID string) error {
	m.cleared = true
	return nil
}

type MockCouponRedeemer struct {
	discount  float64
	err       error
	redeemed  int
	sellerIDs []string
}

func (m *MockCouponRedeemer) Redeem(ctx context.Context, code, sellerID string, items []models.CartItem) (float64, error) {
	m.redeemed++
	m.sellerIDs = append(m.sellerIDs, sellerID)
	if m.err != nil {
		return 0, m.err
	}
	return m.discount, nil
}

type MockPaymentProvider struct {
	intents int
}

func (m *MockPaymentProvider) CreateIntent(ctx context.Context, order *models.Order) (string, string, error) {
	m.intents++
	return "secret_" + order.OrderID, "pi_" + order.OrderID, nil
}

func newTestService(db *MockOrderDB) (*OrderService, *MockNotifier, *MockBroadcaster) {
	notifier := &MockNotifier{}
	hub := NewMockBroadcaster()
	svc := NewOrderService(db, &MockCartStore{}, nil, notifier, hub, nil, nil, config.TopicConfig{}, logger.NewLogger())
	return svc, notifier, hub
}

func seedOrder(db *MockOrderDB, status models.OrderStatus) *models.Order {
	ord := &models.Order{
		OrderID:  "ord-1",
		Number:   "ord_1000_000001",
		BuyerID:  "buyer-1",
		SellerID: "seller-1",
		Status:   status,
		Total:    50,
	}
	db.orders[ord.OrderID] = ord
	return ord
}

func TestRequestTransitionHappyPath(t *testing.T) {
	db := NewMockOrderDB()
	seedOrder(db, models.StatusPending)
	svc, notifier, hub := newTestService(db)

	seller := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}

	ord, err := svc.RequestTransition(context.Background(), seller, "ord-1", models.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, ord.Status)
	assert.Equal(t, models.StatusProcessing, db.orders["ord-1"].Status)

	// Exactly one buyer notification per applied transition
	require.Len(t, notifier.published, 1)
	assert.Equal(t, "buyer-1", notifier.published[0].RecipientID)
	assert.Contains(t, notifier.published[0].Message, "processing")

	// Order room got the update broadcast
	events := hub.events[realtime.OrderRoom("ord-1")]
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventOrderUpdated, events[0].Type)
}

func TestRequestTransitionRejectsSkippedStep(t *testing.T) {
	db := NewMockOrderDB()
	seedOrder(db, models.StatusPending)
	svc, notifier, _ := newTestService(db)

	seller := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}

	_, err := svc.RequestTransition(context.Background(), seller, "ord-1", models.StatusShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusPending, db.orders["ord-1"].Status)
	assert.Empty(t, notifier.published, "rejected transition must not notify")
}

func TestRequestTransitionRejectsTerminalStates(t *testing.T) {
	seller := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}

	for _, terminal := range []models.OrderStatus{models.StatusDelivered, models.StatusCancelled} {
		db := NewMockOrderDB()
		seedOrder(db, terminal)
		svc, notifier, _ := newTestService(db)

		for _, next := range []models.OrderStatus{models.StatusPending, models.StatusProcessing, models.StatusShipped, models.StatusDelivered, models.StatusCancelled} {
			_, err := svc.RequestTransition(context.Background(), seller, "ord-1", next)
			assert.ErrorIs(t, err, ErrInvalidTransition, "from %s to %s", terminal, next)
		}
		assert.Empty(t, notifier.published)
	}
}

func TestRequestTransitionRejectsUnknownStatus(t *testing.T) {
	db := NewMockOrderDB()
	seedOrder(db, models.StatusPending)
	svc, _, _ := newTestService(db)

	seller := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}

	_, err := svc.RequestTransition(context.Background(), seller, "ord-1", models.OrderStatus("returned"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestTransitionAuthorization(t *testing.T) {
	db := NewMockOrderDB()
	seedOrder(db, models.StatusPending)
	svc, _, _ := newTestService(db)

	// Buyers may not change status at all
	buyer := auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}
	_, err := svc.RequestTransition(context.Background(), buyer, "ord-1", models.StatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	// Another seller may not touch this order
	other := auth.Principal{UserID: "seller-2", Role: models.RoleSeller}
	_, err = svc.RequestTransition(context.Background(), other, "ord-1", models.StatusProcessing)
	assert.ErrorIs(t, err, ErrForbidden)

	// Admins act on any order
	admin := auth.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = svc.RequestTransition(context.Background(), admin, "ord-1", models.StatusCancelled)
	assert.NoError(t, err)
}

func TestRequestTransitionNotFound(t *testing.T) {
	db := NewMockOrderDB()
	svc, _, _ := newTestService(db)

	admin := auth.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.RequestTransition(context.Background(), admin, "missing", models.StatusProcessing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestTransitionConcurrentLoser(t *testing.T) {
	db := NewMockOrderDB()
	seedOrder(db, models.StatusPending)
	svc, notifier, _ := newTestService(db)

	admin := auth.Principal{UserID: "admin-1", Role: models.RoleAdmin}

	// Simulate a racing writer flipping the row between the read and
	// the conditional update: the row is already cancelled but the
	// read still reports pending.
	db.orders["ord-1"].Status = models.StatusCancelled
	stale := &staleReadDB{MockOrderDB: db, reportStatus: models.StatusPending}
	svc.DB = stale

	_, err := svc.RequestTransition(context.Background(), admin, "ord-1", models.StatusProcessing)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusCancelled, db.orders["ord-1"].Status, "loser must not overwrite the winner")
	assert.Empty(t, notifier.published, "losing request must not notify")
}

// staleReadDB reports a stale status on read while delegating the
// conditional update to the real mock, reproducing a lost race.
type staleReadDB struct {
	*MockOrderDB
	reportStatus models.OrderStatus
}

func (s *staleReadDB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	ord, err := s.MockOrderDB.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ord.Status = s.reportStatus
	return ord, nil
}

func TestCheckoutGroupsBySeller(t *testing.T) {
	db := NewMockOrderDB()
	notifier := &MockNotifier{}
	hub := NewMockBroadcaster()
	carts := &MockCartStore{cart: &models.Cart{
		UserID: "buyer-1",
		Items: []models.CartItem{
			{ProductID: "p1", SellerID: "seller-1", ProductName: "Tee", Quantity: 2, UnitPrice: 20},
			{ProductID: "p2", SellerID: "seller-2", ProductName: "Tote", Quantity: 1, UnitPrice: 12.5},
			{ProductID: "p3", SellerID: "seller-1", ProductName: "Cap", Quantity: 1, UnitPrice: 15},
		},
	}}
	svc := NewOrderService(db, carts, nil, notifier, hub, nil, nil, config.TopicConfig{}, logger.NewLogger())

	buyer := auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}
	resp, err := svc.Checkout(context.Background(), buyer, models.CheckoutRequest{
		PaymentMethod: "cod",
		ShippingAddress: models.ShippingAddress{
			Name: "Sample Buyer", Street: "1 Main St", City: "Springfield",
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 2, "one order per seller")

	totals := map[string]float64{}
	for _, ord := range resp.Orders {
		totals[ord.SellerID] = ord.Total
		assert.Equal(t, models.StatusPending, ord.Status)
		assert.Equal(t, "buyer-1", ord.BuyerID)
		assert.Equal(t, "Sample Buyer", ord.ShipName)
	}
	assert.InDelta(t, 55.0, totals["seller-1"], 0.001)
	assert.InDelta(t, 12.5, totals["seller-2"], 0.001)

	// Each seller gets one notification
	require.Len(t, notifier.published, 2)
	assert.True(t, carts.cleared, "cart must be cleared after checkout")
}

func TestCheckoutAppliesCouponPerSeller(t *testing.T) {
	db := NewMockOrderDB()
	coupons := &MockCouponRedeemer{discount: 5}
	carts := &MockCartStore{cart: &models.Cart{
		UserID: "buyer-1",
		Items: []models.CartItem{
			{ProductID: "p1", SellerID: "seller-1", ProductName: "Tee", Quantity: 1, UnitPrice: 20},
			{ProductID: "p2", SellerID: "seller-2", ProductName: "Tote", Quantity: 1, UnitPrice: 12.5},
		},
	}}
	svc := NewOrderService(db, carts, coupons, &MockNotifier{}, NewMockBroadcaster(), nil, nil, config.TopicConfig{}, logger.NewLogger())

	buyer := auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}
	resp, err := svc.Checkout(context.Background(), buyer, models.CheckoutRequest{
		PaymentMethod: "cod",
		CouponCode:    "WELCOME10",
		ShippingAddress: models.ShippingAddress{
			Name: "Sample Buyer", Street: "1 Main St", City: "Springfield",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, coupons.redeemed, "coupon evaluated once per seller order")
	assert.ElementsMatch(t, []string{"seller-1", "seller-2"}, coupons.sellerIDs)

	for _, ord := range resp.Orders {
		assert.Equal(t, "WELCOME10", ord.CouponCode)
		assert.InDelta(t, ord.Subtotal-5, ord.Total, 0.001)
	}
}

func TestCheckoutCardPaymentCreatesIntents(t *testing.T) {
	db := NewMockOrderDB()
	payments := &MockPaymentProvider{}
	carts := &MockCartStore{cart: &models.Cart{
		UserID: "buyer-1",
		Items: []models.CartItem{
			{ProductID: "p1", SellerID: "seller-1", ProductName: "Tee", Quantity: 1, UnitPrice: 20},
		},
	}}
	svc := NewOrderService(db, carts, nil, &MockNotifier{}, NewMockBroadcaster(), nil, payments, config.TopicConfig{}, logger.NewLogger())

	buyer := auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}
	resp, err := svc.Checkout(context.Background(), buyer, models.CheckoutRequest{
		PaymentMethod: "card",
		ShippingAddress: models.ShippingAddress{
			Name: "Sample Buyer", Street: "1 Main St", City: "Springfield",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, payments.intents)
	require.Len(t, resp.Orders, 1)
	assert.Contains(t, resp.ClientSecrets, resp.Orders[0].OrderID)
}

func TestCheckoutValidation(t *testing.T) {
	db := NewMockOrderDB()
	svc, _, _ := newTestService(db)
	buyer := auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}

	_, err := svc.Checkout(context.Background(), buyer, models.CheckoutRequest{PaymentMethod: "bitcoin"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Checkout(context.Background(), buyer, models.CheckoutRequest{PaymentMethod: "cod"})
	assert.ErrorIs(t, err, ErrValidation, "incomplete address rejected")

	// Empty cart
	svc.Carts = &MockCartStore{cart: &models.Cart{UserID: "buyer-1"}}
	_, err = svc.Checkout(context.Background(), buyer, models.CheckoutRequest{
		PaymentMethod:   "cod",
		ShippingAddress: models.ShippingAddress{Name: "B", Street: "S", City: "C"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTrackOrderAuthorization(t *testing.T) {
	db := NewMockOrderDB()
	seedOrder(db, models.StatusShipped)
	svc, _, _ := newTestService(db)

	owner := auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}
	ord, err := svc.TrackOrder(context.Background(), owner, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, ord.Status)

	stranger := auth.Principal{UserID: "buyer-2", Role: models.RoleBuyer}
	_, err = svc.TrackOrder(context.Background(), stranger, "ord-1")
	assert.ErrorIs(t, err, ErrForbidden)

	seller := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}
	_, err = svc.TrackOrder(context.Background(), seller, "ord-1")
	assert.NoError(t, err)

	admin := auth.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = svc.TrackOrder(context.Background(), admin, "ord-1")
	assert.NoError(t, err)
}

func TestCanWatchOrder(t *testing.T) {
	db := NewMockOrderDB()
	seedOrder(db, models.StatusPending)
	svc, _, _ := newTestService(db)

	assert.NoError(t, svc.CanWatchOrder(context.Background(), auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}, "ord-1"))
	assert.ErrorIs(t, svc.CanWatchOrder(context.Background(), auth.Principal{UserID: "buyer-9", Role: models.RoleBuyer}, "ord-1"), ErrForbidden)
	assert.ErrorIs(t, svc.CanWatchOrder(context.Background(), auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}, "missing"), ErrNotFound)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	db := NewMockOrderDB()
	ord := seedOrder(db, models.StatusPending)
	ord.PaymentStatus = models.PaymentUnpaid
	svc, notifier, _ := newTestService(db)

	require.NoError(t, svc.MarkPaid(context.Background(), "ord-1"))
	assert.Equal(t, models.PaymentPaid, db.orders["ord-1"].PaymentStatus)
	require.Len(t, notifier.published, 1)

	// Second webhook delivery is a no-op
	require.NoError(t, svc.MarkPaid(context.Background(), "ord-1"))
	assert.Len(t, notifier.published, 1)
}

func TestNextStatuses(t *testing.T) {
	assert.ElementsMatch(t, []models.OrderStatus{models.StatusProcessing, models.StatusCancelled}, NextStatuses(models.StatusPending))
	assert.ElementsMatch(t, []models.OrderStatus{models.StatusShipped, models.StatusCancelled}, NextStatuses(models.StatusProcessing))
	assert.ElementsMatch(t, []models.OrderStatus{models.StatusDelivered, models.StatusCancelled}, NextStatuses(models.StatusShipped))
	assert.Empty(t, NextStatuses(models.StatusDelivered))
	assert.Empty(t, NextStatuses(models.StatusCancelled))
}
