package database

import (
	"context"
	"os"
	"testing"
	"time"

	"pickpoint/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	err = db.SetLockers(context.Background(), []models.Locker{
		{ID: 1, Name: "Central Station", Address: "Main St 1", Coordinates: "41.0082,28.9784", TotalCompartments: 3, Status: models.LockerStatusActive},
		{ID: 2, Name: "Mall Entrance", Address: "Mall Ave 5", Coordinates: "41.0100,28.9800", TotalCompartments: 1, Status: models.LockerStatusActive},
	})
	require.NoError(t, err)
	return db
}

func newTestOrder(lockerID int64) *models.Order {
	return &models.Order{
		ListingID:   101,
		LockerID:    lockerID,
		BuyerID:     7,
		SellerID:    8,
		ItemPrice:   15000,
		DeliveryFee: 2500,
	}
}

func TestCreateOrderWithLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder(1)
	err := db.CreateOrderWithLock(ctx, order)
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Equal(t, models.StatusPendingPayment, order.Status)
	assert.Equal(t, int64(17500), order.TotalPrice)
	assert.Equal(t, order.ItemPrice+order.DeliveryFee, order.TotalPrice)
	assert.Equal(t, int64(1), order.Version)
	assert.WithinDuration(t, order.ReservedAt.Add(models.PaymentWindow), order.PaymentDeadline, time.Second)

	got, err := db.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Nil(t, got.PaidAt)
	assert.Empty(t, got.PickupPin)
	assert.Zero(t, got.CompartmentNumber)
}

func TestCreateOrderWithLock_ConfiguredPaymentWindow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.SetPaymentWindow(5 * time.Minute)

	order := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, order))
	assert.WithinDuration(t, order.ReservedAt.Add(5*time.Minute), order.PaymentDeadline, time.Second)

	// Non-positive overrides are ignored, the current window stays.
	db.SetPaymentWindow(0)
	another := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, another))
	assert.WithinDuration(t, another.ReservedAt.Add(5*time.Minute), another.PaymentDeadline, time.Second)
}

func TestCreateOrderWithLock_NoCompartment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Locker 2 has a single compartment.
	require.NoError(t, db.CreateOrderWithLock(ctx, newTestOrder(2)))

	err := db.CreateOrderWithLock(ctx, newTestOrder(2))
	assert.ErrorIs(t, err, ErrNoCompartment)
}

func TestCreateOrderWithLock_UnknownLocker(t *testing.T) {
	db := setupTestDB(t)

	err := db.CreateOrderWithLock(context.Background(), newTestOrder(99))
	assert.ErrorIs(t, err, ErrLockerNotFound)
}

func TestGetOrder_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetOrder(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestVersionedTransitions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, order))

	now := time.Now()
	require.NoError(t, db.MarkPaid(ctx, order.ID, 1, now))

	// Stale version must be rejected.
	err := db.MarkScheduled(ctx, order.ID, 1, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrConcurrentModification)

	require.NoError(t, db.MarkScheduled(ctx, order.ID, 2, now.Add(time.Hour)))
	require.NoError(t, db.MarkRiderPickedUp(ctx, order.ID, 3, now))

	got, err := db.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInTransit, got.Status)
	assert.Equal(t, int64(4), got.Version)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.PickupTime)
	require.NotNil(t, got.RiderPickedUpAt)
}

func TestMarkDelivered_AssignsLowestFreeCompartment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	deliver := func(order *models.Order) {
		require.NoError(t, db.MarkPaid(ctx, order.ID, 1, now))
		require.NoError(t, db.MarkScheduled(ctx, order.ID, 2, now))
		require.NoError(t, db.MarkRiderPickedUp(ctx, order.ID, 3, now))
		fresh, err := db.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		require.NoError(t, db.MarkDelivered(ctx, fresh, "123456", now))
		order.CompartmentNumber = fresh.CompartmentNumber
	}

	first := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, first))
	deliver(first)
	assert.Equal(t, int64(1), first.CompartmentNumber)

	second := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, second))
	deliver(second)
	assert.Equal(t, int64(2), second.CompartmentNumber)

	// Collecting the first order frees compartment 1 for the next delivery.
	fresh, err := db.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	require.NoError(t, db.MarkCollected(ctx, fresh.ID, fresh.Version, now, models.PickupPoints))

	third := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, third))
	deliver(third)
	assert.Equal(t, int64(1), third.CompartmentNumber)
}

func TestMarkCancelled_RecordsReason(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, order))
	require.NoError(t, db.MarkCancelled(ctx, order.ID, 1, models.CancelReasonBuyer))

	got, err := db.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, models.CancelReasonBuyer, got.CancelReason)
}

func TestExpireOverdueOrders(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	overdue := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, overdue))

	fresh := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, fresh))

	paid := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, paid))
	require.NoError(t, db.MarkPaid(ctx, paid.ID, 1, time.Now()))

	// Only the pending order whose deadline has passed may expire.
	cutoff := overdue.PaymentDeadline.Add(time.Second)
	_, err := db.ExecContext(ctx, `UPDATE orders SET payment_deadline = ? WHERE id = ?`,
		fresh.PaymentDeadline.Add(time.Hour), fresh.ID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE orders SET payment_deadline = ? WHERE id = ?`,
		cutoff.Add(time.Hour), paid.ID)
	require.NoError(t, err)

	expired, err := db.ExpireOverdueOrders(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []int64{overdue.ID}, expired)

	got, err := db.GetOrder(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.Equal(t, models.CancelReasonPayment, got.CancelReason)

	// Expiry freed the compartment claim.
	locker, err := db.GetLocker(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), locker.AvailableCompartments)
}

func TestBuyerAndSellerOrderLists(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := newTestOrder(1)
	require.NoError(t, db.CreateOrderWithLock(ctx, first))

	second := newTestOrder(1)
	second.BuyerID = 99
	require.NoError(t, db.CreateOrderWithLock(ctx, second))

	buyer, err := db.GetBuyerOrders(ctx, 7)
	require.NoError(t, err)
	require.Len(t, buyer, 1)
	assert.Equal(t, first.ID, buyer[0].ID)

	seller, err := db.GetSellerOrders(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, seller, 2)
}
