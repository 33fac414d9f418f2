package notifications

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pickpoint/internal/events"

	"github.com/rs/zerolog"
)

// Notification is a read-only projection of an order transition, keyed
// by order id and addressed to one user.
type Notification struct {
	OrderID   int64     `json:"order_id"`
	UserID    int64     `json:"user_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier consumes order events off the bus and builds per-user feeds.
// The feed is a projection: losing it on restart is fine, the order
// history remains the source of truth.
type Notifier struct {
	logger *zerolog.Logger

	mu    sync.RWMutex
	feeds map[int64][]Notification // user id -> newest last
}

func NewNotifier(bus *events.EventBus, logger *zerolog.Logger) *Notifier {
	n := &Notifier{
		logger: logger,
		feeds:  make(map[int64][]Notification),
	}
	bus.SubscribeAll(n.handleEvent)
	return n
}

func (n *Notifier) handleEvent(event *events.Event) error {
	var payload events.OrderEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("Failed to decode order event")
		return err
	}

	for _, target := range recipients(event.Type, payload) {
		notification := Notification{
			OrderID:   payload.OrderID,
			UserID:    target.userID,
			EventType: event.Type,
			Message:   target.message,
			CreatedAt: event.CreatedAt,
		}

		n.mu.Lock()
		n.feeds[target.userID] = append(n.feeds[target.userID], notification)
		n.mu.Unlock()
	}
	return nil
}

type recipient struct {
	userID  int64
	message string
}

// recipients decides who hears about a transition and with what text.
// The pickup PIN is never included; the buyer fetches it from the order
// detail screen.
func recipients(eventType string, p events.OrderEventPayload) []recipient {
	switch eventType {
	case events.EventOrderCreated:
		return []recipient{
			{p.BuyerID, fmt.Sprintf("Order %d reserved. Complete payment within 15 minutes.", p.OrderID)},
			{p.SellerID, fmt.Sprintf("Your listing %d was reserved, awaiting payment.", p.ListingID)},
		}
	case events.EventOrderPaid:
		return []recipient{
			{p.BuyerID, fmt.Sprintf("Payment received for order %d.", p.OrderID)},
			{p.SellerID, fmt.Sprintf("Order %d is paid. Schedule the rider pickup.", p.OrderID)},
		}
	case events.EventPickupScheduled:
		return []recipient{
			{p.SellerID, fmt.Sprintf("Rider pickup scheduled for order %d.", p.OrderID)},
		}
	case events.EventOrderInTransit:
		return []recipient{
			{p.BuyerID, fmt.Sprintf("Order %d is on its way to the locker.", p.OrderID)},
		}
	case events.EventOrderReadyForPickup:
		return []recipient{
			{p.BuyerID, fmt.Sprintf("Order %d is in compartment %d. Open the app for your pickup PIN.", p.OrderID, p.CompartmentNumber)},
		}
	case events.EventOrderCollected:
		return []recipient{
			{p.BuyerID, fmt.Sprintf("Order %d collected. You earned %d points.", p.OrderID, p.PointsAwarded)},
			{p.SellerID, fmt.Sprintf("Order %d was collected by the buyer.", p.OrderID)},
		}
	case events.EventOrderCancelled:
		return []recipient{
			{p.BuyerID, fmt.Sprintf("Order %d was cancelled (%s).", p.OrderID, p.CancelReason)},
			{p.SellerID, fmt.Sprintf("Order %d was cancelled (%s).", p.OrderID, p.CancelReason)},
		}
	case events.EventOrderExpired:
		return []recipient{
			{p.BuyerID, fmt.Sprintf("Order %d expired: payment was not completed in time.", p.OrderID)},
			{p.SellerID, fmt.Sprintf("Reservation for listing %d expired, the item is available again.", p.ListingID)},
		}
	default:
		return nil
	}
}

// Feed returns the user's notifications, newest last. The returned slice
// is a copy.
func (n *Notifier) Feed(userID int64) []Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Notification(nil), n.feeds[userID]...)
}

// LatestForOrder returns the most recent notification the user received
// about a given order, or nil.
func (n *Notifier) LatestForOrder(userID, orderID int64) *Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()

	feed := n.feeds[userID]
	for i := len(feed) - 1; i >= 0; i-- {
		if feed[i].OrderID == orderID {
			notification := feed[i]
			return &notification
		}
	}
	return nil
}
