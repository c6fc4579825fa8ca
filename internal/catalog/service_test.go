package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/realtime"
)

// MockCatalogStore records the query passed to List so tests can assert
// on filter and sort dispatch without a Postgres instance.
type MockCatalogStore struct {
	products  map[string]*models.Product
	listQuery models.ProductQuery
	listRows  []models.Product
	listErr   error
}

func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{products: make(map[string]*models.Product)}
}

func (m *MockCatalogStore) GetByID(ctx context.Context, id string) (*models.Product, error) {
	p, exists := m.products[id]
	if !exists {
		return nil, errors.New("product not found")
	}
	return p, nil
}

func (m *MockCatalogStore) Insert(ctx context.Context, product *models.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *MockCatalogStore) Update(ctx context.Context, product *models.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return errors.New("product not found")
	}
	m.products[product.ID] = product
	return nil
}

func (m *MockCatalogStore) Delete(ctx context.Context, id string) error {
	if _, exists := m.products[id]; !exists {
		return errors.New("product not found")
	}
	delete(m.products, id)
	return nil
}

func (m *MockCatalogStore) List(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	m.listQuery = q
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listRows, nil
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

func newTestService(db *MockCatalogStore, hub *MockBroadcaster) *Service {
	// nil cache: reads fall through to the store
	return NewService(db, nil, hub, logger.NewLogger())
}

func seedProduct(db *MockCatalogStore, id, sellerID string) *models.Product {
	p := &models.Product{
		ID:       id,
		SellerID: sellerID,
		Name:     "Classic Cotton Tee",
		Category: "apparel",
		Price:    19.99,
		Stock:    10,
	}
	db.products[id] = p
	return p
}

func TestBrowseClampsLimit(t *testing.T) {
	db := NewMockCatalogStore()
	svc := newTestService(db, NewMockBroadcaster())
	ctx := context.Background()

	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero gets the default", 0, 20},
		{"negative gets the default", -5, 20},
		{"over the cap gets the default", 101, 20},
		{"at the cap passes through", 100, 100},
		{"in range passes through", 42, 42},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Browse(ctx, models.ProductQuery{Limit: tc.limit})
			require.NoError(t, err)
			assert.Equal(t, tc.want, db.listQuery.Limit)
		})
	}
}

func TestBrowsePassesFiltersThrough(t *testing.T) {
	db := NewMockCatalogStore()
	db.listRows = []models.Product{{ID: "p1", Name: "Canvas Tote Bag"}}
	svc := newTestService(db, NewMockBroadcaster())

	q := models.ProductQuery{
		Search:   "tote",
		Category: "bags",
		SellerID: "seller-1",
		PriceMin: 5,
		PriceMax: 50,
		SortBy:   "price_asc",
		Limit:    10,
		Offset:   30,
	}
	rows, err := svc.Browse(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].ID)

	// Filters, sort and paging reach the store untouched
	assert.Equal(t, q, db.listQuery)
}

func TestBrowseSortDispatch(t *testing.T) {
	db := NewMockCatalogStore()
	svc := newTestService(db, NewMockBroadcaster())
	ctx := context.Background()

	for _, sortBy := range []string{"price_asc", "price_desc", "newest", ""} {
		_, err := svc.Browse(ctx, models.ProductQuery{SortBy: sortBy, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, sortBy, db.listQuery.SortBy)
	}
}

func TestGetProductByIDFallsThroughToStore(t *testing.T) {
	db := NewMockCatalogStore()
	seedProduct(db, "p1", "seller-1")
	svc := newTestService(db, NewMockBroadcaster())

	product, err := svc.GetProductByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Classic Cotton Tee", product.Name)

	_, err = svc.GetProductByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateProduct(t *testing.T) {
	db := NewMockCatalogStore()
	hub := NewMockBroadcaster()
	svc := newTestService(db, hub)
	ctx := context.Background()

	seller := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}
	product, err := svc.Create(ctx, seller, &models.Product{
		Name:     "Canvas Tote Bag",
		SellerID: "someone-else", // sellers cannot list under another account
		Price:    12.50,
		Stock:    5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "seller-1", product.SellerID)

	// Admin dashboard hears about the change
	adminRoom := realtime.RoleRoom(models.RoleAdmin)
	require.Len(t, hub.events[adminRoom], 1)
	assert.Equal(t, realtime.EventAdminDashboard, hub.events[adminRoom][0].Type)
}

func TestCreateProductAuthorizationAndValidation(t *testing.T) {
	svc := newTestService(NewMockCatalogStore(), NewMockBroadcaster())
	ctx := context.Background()

	buyer := auth.Principal{UserID: "buyer-1", Role: models.RoleBuyer}
	_, err := svc.Create(ctx, buyer, &models.Product{Name: "Tee", Price: 10})
	assert.ErrorIs(t, err, ErrForbidden)

	seller := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}
	_, err = svc.Create(ctx, seller, &models.Product{Price: 10})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, seller, &models.Product{Name: "Tee", Price: 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, seller, &models.Product{Name: "Tee", Price: 10, Stock: -1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateProductOwnership(t *testing.T) {
	db := NewMockCatalogStore()
	seedProduct(db, "p1", "seller-1")
	svc := newTestService(db, NewMockBroadcaster())
	ctx := context.Background()

	update := &models.Product{ID: "p1", Name: "Premium Cotton Tee", Price: 24.99, Stock: 8}

	other := auth.Principal{UserID: "seller-2", Role: models.RoleSeller}
	_, err := svc.Update(ctx, other, update)
	assert.ErrorIs(t, err, ErrForbidden)

	owner := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}
	updated, err := svc.Update(ctx, owner, update)
	require.NoError(t, err)
	assert.Equal(t, "Premium Cotton Tee", updated.Name)
	assert.Equal(t, "seller-1", updated.SellerID, "ownership must not change on update")

	admin := auth.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = svc.Update(ctx, admin, update)
	assert.NoError(t, err)
}

func TestDeleteProductOwnership(t *testing.T) {
	db := NewMockCatalogStore()
	seedProduct(db, "p1", "seller-1")
	hub := NewMockBroadcaster()
	svc := newTestService(db, hub)
	ctx := context.Background()

	other := auth.Principal{UserID: "seller-2", Role: models.RoleSeller}
	assert.ErrorIs(t, svc.Delete(ctx, other, "p1"), ErrForbidden)

	owner := auth.Principal{UserID: "seller-1", Role: models.RoleSeller}
	require.NoError(t, svc.Delete(ctx, owner, "p1"))
	_, err := svc.GetProductByID(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, owner, "p1"), ErrNotFound)
}
