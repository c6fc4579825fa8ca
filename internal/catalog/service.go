package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/realtime"
)

var (
	ErrNotFound   = errors.New("product not found")
	ErrForbidden  = errors.New("not allowed to manage this product")
	ErrValidation = errors.New("invalid product")
)

const productCacheTTL = 5 * time.Minute

type Store interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q models.ProductQuery) ([]models.Product, error)
}

type Broadcaster interface {
	Publish(room string, ev realtime.Event)
}

// Service owns the product catalog. Reads go through a Redis
// cache keyed per product; catalog changes are pushed to the admin
// dashboard room.
type Service struct {
	DB     Store
	Cache  *redis.Client
	Hub    Broadcaster
	Logger *logger.Logger
}

func NewService(db Store, cache *redis.Client, hub Broadcaster, log *logger.Logger) *Service {
	return &Service{DB: db, Cache: cache, Hub: hub, Logger: log}
}

func productCacheKey(id string) string { return "product:" + id }

// GetProductByID serves from the cache when it can, falling back to
// the database and repopulating on a miss. Cache trouble is logged but
// never fails the read.
func (s *Service) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	if s.Cache != nil {
		raw, err := s.Cache.Get(ctx, productCacheKey(id)).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(raw), &product); err == nil {
				return &product, nil
			}
		} else if err != redis.Nil {
			s.Logger.Warn("CATALOG", fmt.Sprintf("Cache read failed for product %s: %v", id, err))
		}
	}

	product, err := s.DB.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	s.cacheProduct(ctx, product)
	return product, nil
}

// Browse lists products matching the query filters. Listing is not
// cached; per-product reads are the hot path.
func (s *Service) Browse(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	return s.DB.List(ctx, q)
}

// Create registers a product under the calling seller.
func (s *Service) Create(ctx context.Context, p auth.Principal, product *models.Product) (*models.Product, error) {
	if p.Role != models.RoleSeller && !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if p.Role == models.RoleSeller {
		product.SellerID = p.UserID
	}
	if product.SellerID == "" {
		return nil, fmt.Errorf("%w: seller_id is required", ErrValidation)
	}

	product.ID = uuid.New().String()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	if err := s.DB.Insert(ctx, product); err != nil {
		return nil, err
	}

	s.Logger.Info("CATALOG", fmt.Sprintf("Seller %s created product %s", product.SellerID, product.ID))
	s.broadcastChange("Product created: " + product.Name)
	return product, nil
}

func (s *Service) Update(ctx context.Context, p auth.Principal, product *models.Product) (*models.Product, error) {
	existing, err := s.DB.GetByID(ctx, product.ID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !p.IsAdmin() && existing.SellerID != p.UserID {
		return nil, ErrForbidden
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	product.SellerID = existing.SellerID
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()

	if err := s.DB.Update(ctx, product); err != nil {
		return nil, err
	}

	s.invalidateProduct(ctx, product.ID)
	s.broadcastChange("Product updated: " + product.Name)
	return product, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	existing, err := s.DB.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !p.IsAdmin() && existing.SellerID != p.UserID {
		return ErrForbidden
	}

	if err := s.DB.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateProduct(ctx, id)
	s.broadcastChange("Product deleted: " + existing.Name)
	return nil
}

func (s *Service) cacheProduct(ctx context.Context, product *models.Product) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, productCacheKey(product.ID), raw, productCacheTTL).Err(); err != nil {
		s.Logger.Warn("CATALOG", fmt.Sprintf("Cache write failed for product %s: %v", product.ID, err))
	}
}

func (s *Service) invalidateProduct(ctx context.Context, id string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, productCacheKey(id)).Err(); err != nil {
		s.Logger.Warn("CATALOG", fmt.Sprintf("Cache invalidation failed for product %s: %v", id, err))
	}
}

func (s *Service) broadcastChange(message string) {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(realtime.RoleRoom(models.RoleAdmin), realtime.Event{
		Type:    realtime.EventAdminDashboard,
		Message: message,
	})
}

func validateProduct(product *models.Product) error {
	if product.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if product.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if product.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}
