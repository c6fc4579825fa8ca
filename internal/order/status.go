package order

import (
	"errors"

	"storefront/internal/models"
)

// Error taxonomy for order operations. Handlers map these to HTTP
// statuses with errors.Is.
var (
	ErrNotFound          = errors.New("order not found")
	ErrForbidden         = errors.New("caller may not act on this order")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrValidation        = errors.New("invalid request")
)

// allowedTransitions is the full lifecycle table. delivered and
// cancelled are terminal: they map to the empty set.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:    {models.StatusProcessing, models.StatusCancelled},
	models.StatusProcessing: {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped:    {models.StatusDelivered, models.StatusCancelled},
	models.StatusDelivered:  {},
	models.StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to
// the next.
func CanTransition(from, to models.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the permitted next states for a status.
func NextStatuses(from models.OrderStatus) []models.OrderStatus {
	return allowedTransitions[from]
}
