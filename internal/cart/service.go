package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/logger"
	"storefront/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidSize     = errors.New("requested size is not offered for this product")
	ErrOutOfStock      = errors.New("requested quantity exceeds available stock")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrValidation      = errors.New("invalid cart request")
)

// ProductReader resolves product snapshots when items are added. The
// catalog service satisfies it.
type ProductReader interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
}

type Service struct {
	Store    *Store
	Products ProductReader
	Logger   *logger.Logger
}

func NewService(store *Store, products ProductReader, log *logger.Logger) *Service {
	return &Service{Store: store, Products: products, Logger: log}
}

func (s *Service) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	return s.Store.GetCart(ctx, userID)
}

// AddItem snapshots the product's current name, price and seller onto
// the cart line. Adding an already present product/size line bumps its
// quantity instead of duplicating it.
func (s *Service) AddItem(ctx context.Context, userID, productID, size string, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	product, err := s.Products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, ErrProductNotFound
	}
	if len(product.Sizes) > 0 && size != "" && !containsSize(product.Sizes, size) {
		return nil, ErrInvalidSize
	}

	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID && cart.Items[i].Size == size {
			cart.Items[i].Quantity += quantity
			if cart.Items[i].Quantity > product.Stock {
				return nil, ErrOutOfStock
			}
			found = true
			break
		}
	}
	if !found {
		if quantity > product.Stock {
			return nil, ErrOutOfStock
		}
		cart.Items = append(cart.Items, models.CartItem{
			ProductID:   product.ID,
			SellerID:    product.SellerID,
			ProductName: product.Name,
			Size:        size,
			Quantity:    quantity,
			UnitPrice:   product.Price,
		})
	}

	if err := s.Store.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	s.Logger.Info("CART", fmt.Sprintf("User %s added %dx %s to cart", userID, quantity, productID))
	return cart, nil
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID, size string, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID, size)
	}

	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID && cart.Items[i].Size == size {
			cart.Items[i].Quantity = quantity
			if err := s.Store.SaveCart(ctx, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
	}
	return nil, ErrItemNotFound
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID, size string) (*models.Cart, error) {
	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	removed := false
	for _, item := range cart.Items {
		if item.ProductID == productID && item.Size == size {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return nil, ErrItemNotFound
	}
	cart.Items = kept

	if err := s.Store.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	return s.Store.ClearCart(ctx, userID)
}

func (s *Service) GetWishlist(ctx context.Context, userID string) (*models.Wishlist, error) {
	return s.Store.GetWishlist(ctx, userID)
}

// AddToWishlist is idempotent; adding a product twice keeps one entry.
func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) (*models.Wishlist, error) {
	if _, err := s.Products.GetProductByID(ctx, productID); err != nil {
		return nil, ErrProductNotFound
	}

	wl, err := s.Store.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, id := range wl.ProductIDs {
		if id == productID {
			return wl, nil
		}
	}
	wl.ProductIDs = append(wl.ProductIDs, productID)

	if err := s.Store.SaveWishlist(ctx, wl); err != nil {
		return nil, err
	}
	return wl, nil
}

func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) (*models.Wishlist, error) {
	wl, err := s.Store.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := wl.ProductIDs[:0]
	for _, id := range wl.ProductIDs {
		if id != productID {
			kept = append(kept, id)
		}
	}
	wl.ProductIDs = kept

	if err := s.Store.SaveWishlist(ctx, wl); err != nil {
		return nil, err
	}
	return wl, nil
}

func containsSize(sizes []string, size string) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}
