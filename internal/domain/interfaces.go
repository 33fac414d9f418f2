package domain

import (
	"context"
	"time"

	"pickpoint/internal/models"
)

type OrderRepository interface {
	CreateOrderWithLock(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetBuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error)
	GetSellerOrders(ctx context.Context, sellerID int64) ([]*models.Order, error)
	MarkPaid(ctx context.Context, id, fromVersion int64, paidAt time.Time) error
	MarkScheduled(ctx context.Context, id, fromVersion int64, pickupTime time.Time) error
	MarkRiderPickedUp(ctx context.Context, id, fromVersion int64, at time.Time) error
	MarkDelivered(ctx context.Context, order *models.Order, pin string, at time.Time) error
	MarkCollected(ctx context.Context, id, fromVersion int64, at time.Time, points int64) error
	MarkCancelled(ctx context.Context, id, fromVersion int64, reason string) error
	ExpireOverdueOrders(ctx context.Context, now time.Time) ([]int64, error)
}

type LockerRepository interface {
	SetLockers(ctx context.Context, lockers []models.Locker) error
	GetLockers(ctx context.Context) ([]models.Locker, error)
	GetLocker(ctx context.Context, id int64) (*models.Locker, error)
	GetActiveClaimCount(ctx context.Context, lockerID int64) (int64, error)
}

// DirectoryCache fronts the locker directory read path. Implementations
// may be Redis-backed, in-memory, or a failover chain of both.
type DirectoryCache interface {
	GetLockers(ctx context.Context) ([]models.Locker, error)
	SetLockers(ctx context.Context, lockers []models.Locker) error
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetBuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error)
	GetSellerOrders(ctx context.Context, sellerID int64) ([]*models.Order, error)
	Pay(ctx context.Context, id int64) (*models.Order, error)
	Schedule(ctx context.Context, id int64, pickupTime time.Time) (*models.Order, error)
	ConfirmRiderPickup(ctx context.Context, id int64) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, id int64) (*models.Order, error)
	VerifyPin(ctx context.Context, id int64, pin string) (*models.Order, int64, error)
	Cancel(ctx context.Context, id int64, reason string) (*models.Order, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error)
}

type LockerService interface {
	GetLockers(ctx context.Context) ([]models.Locker, error)
	GetLocker(ctx context.Context, id int64) (*models.Locker, error)
}
