package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/realtime"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrForbidden = errors.New("notification belongs to another user")
)

// Event is a notification to be fanned out. OrderID is optional and
// carried along so clients can link the notification to an order.
type Event struct {
	RecipientID string
	OrderID     string
	Message     string
}

type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
	DeleteAllByUser(ctx context.Context, userID string) error
}

type Broadcaster interface {
	Publish(room string, ev realtime.Event)
}

// Service delivers events to live connections and always keeps a
// durable copy, regardless of delivery.
type Service struct {
	DB     Store
	Hub    Broadcaster
	Logger *logger.Logger
}

func NewService(db Store, hub Broadcaster, log *logger.Logger) *Service {
	return &Service{DB: db, Hub: hub, Logger: log}
}

// Publish persists the notification first, then attempts a best-effort
// push to the recipient's live connection. Push failures never surface:
// the durable copy is the recovery path, reconciled by the client via
// the REST listing on load or reconnect.
func (s *Service) Publish(ctx context.Context, ev Event) (*models.Notification, error) {
	if ev.RecipientID == "" {
		return nil, fmt.Errorf("notification event has no recipient")
	}

	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    ev.RecipientID,
		OrderID:   ev.OrderID,
		Message:   ev.Message,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	if err := s.DB.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}
	s.Logger.LogNotification("PUBLISH", ev.RecipientID, ev.Message)

	// Fire-and-forget push. No listener is a silent no-op. Workers
	// without a hub persist only.
	if s.Hub != nil {
		s.Hub.Publish(realtime.UserRoom(ev.RecipientID), realtime.Event{
			Type:    realtime.EventNotification,
			OrderID: ev.OrderID,
			Message: ev.Message,
		})
	}

	return n, nil
}

// List returns all of the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.DB.ListByUser(ctx, userID)
}

// MarkRead flips the read flag. It is idempotent: marking an already
// read notification succeeds without change.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.DB.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	if n.IsRead {
		return nil
	}
	return s.DB.MarkRead(ctx, id)
}

// MarkAllRead marks every unread notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.DB.MarkAllRead(ctx, userID)
}

// Delete removes one notification owned by the user.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	n, err := s.DB.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	return s.DB.Delete(ctx, id)
}

// ClearAll removes every notification of the user.
func (s *Service) ClearAll(ctx context.Context, userID string) error {
	return s.DB.DeleteAllByUser(ctx, userID)
}
