package notifications

import (
	"os"
	"strings"
	"testing"

	"pickpoint/internal/events"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T) (*Notifier, *events.EventBus) {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	bus := events.NewEventBus()
	return NewNotifier(bus, &logger), bus
}

func publish(t *testing.T, bus *events.EventBus, eventType string, payload events.OrderEventPayload) {
	t.Helper()
	require.NoError(t, bus.PublishJSON(eventType, payload))
}

func TestNotifierBuildsPerUserFeeds(t *testing.T) {
	notifier, bus := newTestNotifier(t)

	payload := events.OrderEventPayload{OrderID: 42, ListingID: 101, BuyerID: 7, SellerID: 8}
	publish(t, bus, events.EventOrderCreated, payload)
	publish(t, bus, events.EventOrderPaid, payload)

	buyer := notifier.Feed(7)
	require.Len(t, buyer, 2)
	assert.Equal(t, events.EventOrderCreated, buyer[0].EventType)
	assert.Equal(t, events.EventOrderPaid, buyer[1].EventType)

	seller := notifier.Feed(8)
	require.Len(t, seller, 2)
	assert.Contains(t, seller[1].Message, "Schedule the rider pickup")

	assert.Empty(t, notifier.Feed(999))
}

func TestReadyForPickupNeverLeaksPin(t *testing.T) {
	notifier, bus := newTestNotifier(t)

	publish(t, bus, events.EventOrderReadyForPickup, events.OrderEventPayload{
		OrderID: 42, BuyerID: 7, SellerID: 8, CompartmentNumber: 3,
	})

	feed := notifier.Feed(7)
	require.Len(t, feed, 1)
	assert.Contains(t, feed[0].Message, "compartment 3")
	assert.NotContains(t, strings.ToLower(feed[0].Message), "pin is")

	// Sellers are not told about delivery into the locker.
	assert.Empty(t, notifier.Feed(8))
}

func TestLatestForOrder(t *testing.T) {
	notifier, bus := newTestNotifier(t)

	payload := events.OrderEventPayload{OrderID: 42, BuyerID: 7, SellerID: 8}
	publish(t, bus, events.EventOrderCreated, payload)
	publish(t, bus, events.EventOrderPaid, payload)
	publish(t, bus, events.EventOrderCreated, events.OrderEventPayload{OrderID: 43, BuyerID: 7, SellerID: 8})

	latest := notifier.LatestForOrder(7, 42)
	require.NotNil(t, latest)
	assert.Equal(t, events.EventOrderPaid, latest.EventType)

	assert.Nil(t, notifier.LatestForOrder(7, 99))
}

func TestCancelledAndExpiredNotifyBothSides(t *testing.T) {
	notifier, bus := newTestNotifier(t)

	publish(t, bus, events.EventOrderCancelled, events.OrderEventPayload{
		OrderID: 42, BuyerID: 7, SellerID: 8, CancelReason: "cancelled_by_buyer",
	})
	publish(t, bus, events.EventOrderExpired, events.OrderEventPayload{
		OrderID: 43, ListingID: 102, BuyerID: 7, SellerID: 8,
	})

	assert.Len(t, notifier.Feed(7), 2)
	assert.Len(t, notifier.Feed(8), 2)
	assert.Contains(t, notifier.Feed(7)[0].Message, "cancelled_by_buyer")
}
