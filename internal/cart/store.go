package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/models"
)

// Store keeps carts and wishlists as per-user JSON documents in Redis.
// Carts expire after the configured TTL so abandoned carts clean
// themselves up; wishlists do not expire.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func cartKey(userID string) string     { return "cart:" + userID }
func wishlistKey(userID string) string { return "wishlist:" + userID }

// GetCart returns the user's cart, or an empty cart when none exists.
func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	raw, err := s.Client.Get(ctx, cartKey(userID)).Result()
	if err == redis.Nil {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to fetch cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("redis: corrupt cart document: %w", err)
	}
	return &cart, nil
}

// SaveCart stores the cart and refreshes its expiry.
func (s *Store) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, cartKey(cart.UserID), raw, s.TTL).Err()
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	return s.Client.Del(ctx, cartKey(userID)).Err()
}

// GetWishlist returns the user's wishlist, or an empty one when none
// exists.
func (s *Store) GetWishlist(ctx context.Context, userID string) (*models.Wishlist, error) {
	raw, err := s.Client.Get(ctx, wishlistKey(userID)).Result()
	if err == redis.Nil {
		return &models.Wishlist{UserID: userID, ProductIDs: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to fetch wishlist: %w", err)
	}

	var wl models.Wishlist
	if err := json.Unmarshal([]byte(raw), &wl); err != nil {
		return nil, fmt.Errorf("redis: corrupt wishlist document: %w", err)
	}
	return &wl, nil
}

func (s *Store) SaveWishlist(ctx context.Context, wl *models.Wishlist) error {
	wl.UpdatedAt = time.Now()
	raw, err := json.Marshal(wl)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, wishlistKey(wl.UserID), raw, 0).Err()
}
