package service

import (
	"context"
	"os"
	"testing"
	"time"

	"pickpoint/internal/database"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDirectoryService(t *testing.T) (*LockerDirectoryService, *database.DB, *repository.MemoryDirectoryCache) {
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	err = db.SetLockers(context.Background(), []models.Locker{
		{ID: 1, Name: "Central Station", Address: "Main St 1", Coordinates: "41.0082,28.9784", TotalCompartments: 4},
	})
	require.NoError(t, err)

	cache := repository.NewMemoryDirectoryCache(time.Hour)
	return NewLockerDirectoryService(db, cache, &logger), db, cache
}

func TestGetLockers_PopulatesCache(t *testing.T) {
	svc, _, cache := setupDirectoryService(t)
	ctx := context.Background()

	lockers, err := svc.GetLockers(ctx)
	require.NoError(t, err)
	require.Len(t, lockers, 1)
	assert.Equal(t, int64(4), lockers[0].AvailableCompartments)

	cached, err := cache.GetLockers(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestGetLockers_ServesFromCache(t *testing.T) {
	svc, _, cache := setupDirectoryService(t)
	ctx := context.Background()

	stale := []models.Locker{{ID: 1, Name: "Cached Copy", TotalCompartments: 4, AvailableCompartments: 2}}
	require.NoError(t, cache.SetLockers(ctx, stale))

	lockers, err := svc.GetLockers(ctx)
	require.NoError(t, err)
	require.Len(t, lockers, 1)
	assert.Equal(t, "Cached Copy", lockers[0].Name)
}

func TestInvalidateCache(t *testing.T) {
	svc, db, cache := setupDirectoryService(t)
	ctx := context.Background()

	_, err := svc.GetLockers(ctx)
	require.NoError(t, err)

	// An order claims a compartment; the cached copy is now stale.
	order := &models.Order{ListingID: 101, LockerID: 1, BuyerID: 7, SellerID: 8, ItemPrice: 100, DeliveryFee: 10}
	require.NoError(t, db.CreateOrderWithLock(ctx, order))
	svc.InvalidateCache(ctx)

	cached, err := cache.GetLockers(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)

	lockers, err := svc.GetLockers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), lockers[0].AvailableCompartments)
}
