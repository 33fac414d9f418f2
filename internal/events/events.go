package events

import (
	"encoding/json"
	"sync"
	"time"
)

// One event type per order state machine transition.
const (
	EventOrderCreated        = "order_created"
	EventOrderPaid           = "order_paid"
	EventPickupScheduled     = "order_pickup_scheduled"
	EventOrderInTransit      = "order_in_transit"
	EventOrderReadyForPickup = "order_ready_for_pickup"
	EventOrderCollected      = "order_collected"
	EventOrderCancelled      = "order_cancelled"
	EventOrderExpired        = "order_expired"
)

// OrderEventPayload describes the minimal order snapshot for event
// consumers. The pickup PIN is deliberately absent: notifications must
// never carry it before the buyer fetches the order detail.
type OrderEventPayload struct {
	OrderID           int64     `json:"order_id"`
	ListingID         int64     `json:"listing_id"`
	LockerID          int64     `json:"locker_id"`
	BuyerID           int64     `json:"buyer_id"`
	SellerID          int64     `json:"seller_id"`
	Status            string    `json:"status"`
	CompartmentNumber int64     `json:"compartment_number,omitempty"`
	CancelReason      string    `json:"cancel_reason,omitempty"`
	PointsAwarded     int64     `json:"points_awarded,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every order event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, eventType := range []string{
		EventOrderCreated, EventOrderPaid, EventPickupScheduled,
		EventOrderInTransit, EventOrderReadyForPickup,
		EventOrderCollected, EventOrderCancelled, EventOrderExpired,
	} {
		b.Subscribe(eventType, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
