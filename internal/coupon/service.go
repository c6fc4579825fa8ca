package coupon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/utils"
)

var (
	ErrNotFound      = errors.New("coupon not found")
	ErrForbidden     = errors.New("not allowed to manage this coupon")
	ErrNotApplicable = errors.New("coupon not applicable")
	ErrValidation    = errors.New("invalid coupon definition")
)

type Store interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Insert(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, code string) error
	ListBySeller(ctx context.Context, sellerID string) ([]models.Coupon, error)
	// IncrementUsage bumps current_usage only while the usage cap has
	// not been hit. Returns false when the cap was already reached.
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

// ApplyResult reports whether a coupon applies to a set of cart lines
// and the discount it yields.
type ApplyResult struct {
	IsValid        bool
	DiscountAmount float64
	Reason         string
}

type Service struct {
	DB     Store
	Logger *logger.Logger
}

func NewService(db Store, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// Evaluate checks a coupon against the given seller's cart lines
// without consuming a use. Invalid coupons come back with a Reason,
// not an error; errors mean the coupon definition itself is broken.
func (s *Service) Evaluate(coupon *models.Coupon, sellerID string, items []models.CartItem) (*ApplyResult, error) {
	result := &ApplyResult{}

	if coupon == nil {
		return result, nil
	}

	if coupon.SellerID != sellerID {
		result.Reason = "Coupon does not belong to this seller"
		return result, nil
	}
	if !coupon.Active {
		result.Reason = "Coupon is not active"
		return result, nil
	}

	now := time.Now()
	if now.Before(coupon.ActiveFrom) {
		result.Reason = "Coupon is not yet active"
		return result, nil
	}
	if !now.Before(coupon.ExpiresAt) {
		result.Reason = "Coupon has expired"
		return result, nil
	}
	if coupon.MaxUsage > 0 && coupon.CurrentUsage >= coupon.MaxUsage {
		result.Reason = "Coupon usage limit has been reached"
		return result, nil
	}

	scoped := make(map[string]bool)
	for _, id := range coupon.ProductIDs {
		scoped[id] = true
	}

	// Expand lines into per-unit prices so quantity counts toward
	// BUY_N_GET_N and scoping applies per unit.
	var applicableUnits []float64
	var applicableSubtotal float64
	var cartSubtotal float64

	for _, item := range items {
		lineTotal := item.UnitPrice * float64(item.Quantity)
		cartSubtotal += lineTotal

		if len(scoped) == 0 || scoped[item.ProductID] {
			for i := 0; i < item.Quantity; i++ {
				applicableUnits = append(applicableUnits, item.UnitPrice)
			}
			applicableSubtotal += lineTotal
		}
	}

	if len(scoped) > 0 && len(applicableUnits) == 0 {
		result.Reason = "No items in cart match the coupon's products"
		return result, nil
	}

	if coupon.Type == models.CouponPercentage || coupon.Type == models.CouponFlatOff {
		if coupon.MinSpend != nil && cartSubtotal < *coupon.MinSpend {
			result.Reason = fmt.Sprintf("Cart subtotal does not meet minimum spend requirement of %.2f", *coupon.MinSpend)
			return result, nil
		}
	}

	var discountAmount float64
	switch coupon.Type {
	case models.CouponFlatOff:
		if coupon.Amount == nil {
			return nil, fmt.Errorf("%w: amount is required for FLAT_OFF", ErrValidation)
		}
		discountAmount = *coupon.Amount
		if discountAmount > applicableSubtotal {
			discountAmount = applicableSubtotal
		}

	case models.CouponPercentage:
		if coupon.Percentage == nil {
			return nil, fmt.Errorf("%w: percentage is required for PERCENTAGE", ErrValidation)
		}
		discountAmount = applicableSubtotal * (*coupon.Percentage / 100)
		if coupon.MaxDiscount != nil && discountAmount > *coupon.MaxDiscount {
			discountAmount = *coupon.MaxDiscount
		}

	case models.CouponBuyNGetN:
		if coupon.BuyQuantity == nil || coupon.GetQuantity == nil {
			return nil, fmt.Errorf("%w: buy_quantity and get_quantity are required for BUY_N_GET_N_FREE", ErrValidation)
		}

		buyQty := *coupon.BuyQuantity
		getQty := *coupon.GetQuantity
		if buyQty <= 0 {
			return nil, fmt.Errorf("%w: buy_quantity must be positive", ErrValidation)
		}

		if len(applicableUnits) < buyQty {
			result.Reason = fmt.Sprintf("Not enough applicable items for BOGO coupon (need %d, have %d)", buyQty, len(applicableUnits))
			return result, nil
		}

		// Cheapest units go free
		sort.Float64s(applicableUnits)

		numFree := (len(applicableUnits) / buyQty) * getQty
		if numFree > len(applicableUnits) {
			numFree = len(applicableUnits)
		}
		for i := 0; i < numFree; i++ {
			discountAmount += applicableUnits[i]
		}

	default:
		return nil, fmt.Errorf("%w: unsupported coupon type %s", ErrValidation, coupon.Type)
	}

	if discountAmount > cartSubtotal {
		discountAmount = cartSubtotal
	}

	result.IsValid = true
	result.DiscountAmount = discountAmount
	return result, nil
}

// Redeem validates the coupon against the seller's cart lines and
// consumes one use. Checkout calls this once per seller order.
func (s *Service) Redeem(ctx context.Context, code, sellerID string, items []models.CartItem) (float64, error) {
	coupon, err := s.DB.GetByCode(ctx, code)
	if err != nil {
		return 0, ErrNotFound
	}

	result, err := s.Evaluate(coupon, sellerID, items)
	if err != nil {
		return 0, err
	}
	if !result.IsValid {
		return 0, fmt.Errorf("%w: %s", ErrNotApplicable, result.Reason)
	}

	applied, err := s.DB.IncrementUsage(ctx, code)
	if err != nil {
		return 0, err
	}
	if !applied {
		return 0, fmt.Errorf("%w: coupon usage limit has been reached", ErrNotApplicable)
	}

	s.Logger.Info("COUPON", fmt.Sprintf("Redeemed coupon %s for seller %s (discount %.2f)", code, sellerID, result.DiscountAmount))
	return result.DiscountAmount, nil
}

// Create registers a coupon for the caller's shop. Sellers own their
// coupons; admins may create on behalf of any seller.
func (s *Service) Create(ctx context.Context, p auth.Principal, coupon *models.Coupon) (*models.Coupon, error) {
	if p.Role == models.RoleSeller {
		coupon.SellerID = p.UserID
	} else if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if coupon.SellerID == "" {
		return nil, fmt.Errorf("%w: seller_id is required", ErrValidation)
	}
	if err := validateDefinition(coupon); err != nil {
		return nil, err
	}

	if coupon.Code == "" {
		coupon.Code = utils.GenerateCouponCode()
	}
	coupon.CurrentUsage = 0
	coupon.CreatedAt = time.Now()

	if err := s.DB.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	s.Logger.Info("COUPON", fmt.Sprintf("Created coupon %s for seller %s", coupon.Code, coupon.SellerID))
	return coupon, nil
}

func (s *Service) Update(ctx context.Context, p auth.Principal, coupon *models.Coupon) (*models.Coupon, error) {
	existing, err := s.DB.GetByCode(ctx, coupon.Code)
	if err != nil {
		return nil, ErrNotFound
	}
	if !p.IsAdmin() && existing.SellerID != p.UserID {
		return nil, ErrForbidden
	}

	coupon.SellerID = existing.SellerID
	coupon.CurrentUsage = existing.CurrentUsage
	coupon.CreatedAt = existing.CreatedAt
	if err := validateDefinition(coupon); err != nil {
		return nil, err
	}

	if err := s.DB.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, code string) error {
	existing, err := s.DB.GetByCode(ctx, code)
	if err != nil {
		return ErrNotFound
	}
	if !p.IsAdmin() && existing.SellerID != p.UserID {
		return ErrForbidden
	}
	return s.DB.Delete(ctx, code)
}

func (s *Service) ListMine(ctx context.Context, p auth.Principal) ([]models.Coupon, error) {
	return s.DB.ListBySeller(ctx, p.UserID)
}

func (s *Service) Get(ctx context.Context, p auth.Principal, code string) (*models.Coupon, error) {
	coupon, err := s.DB.GetByCode(ctx, code)
	if err != nil {
		return nil, ErrNotFound
	}
	if !p.IsAdmin() && coupon.SellerID != p.UserID {
		return nil, ErrForbidden
	}
	return coupon, nil
}

func validateDefinition(coupon *models.Coupon) error {
	switch coupon.Type {
	case models.CouponPercentage:
		if coupon.Percentage == nil || *coupon.Percentage <= 0 || *coupon.Percentage > 100 {
			return fmt.Errorf("%w: percentage must be in (0, 100]", ErrValidation)
		}
	case models.CouponFlatOff:
		if coupon.Amount == nil || *coupon.Amount <= 0 {
			return fmt.Errorf("%w: amount must be positive", ErrValidation)
		}
	case models.CouponBuyNGetN:
		if coupon.BuyQuantity == nil || coupon.GetQuantity == nil || *coupon.BuyQuantity <= 0 || *coupon.GetQuantity <= 0 {
			return fmt.Errorf("%w: buy_quantity and get_quantity must be positive", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported coupon type %s", ErrValidation, coupon.Type)
	}

	if !coupon.ExpiresAt.After(coupon.ActiveFrom) {
		return fmt.Errorf("%w: expires_at must be after active_from", ErrValidation)
	}
	if coupon.MaxUsage < 0 {
		return fmt.Errorf("%w: max_usage cannot be negative", ErrValidation)
	}
	return nil
}
