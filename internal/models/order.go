package models

import "time"

// Order statuses. The lifecycle is
// pending_payment -> paid -> pickup_scheduled -> in_transit ->
// ready_for_pickup -> collected, with cancelled and expired reachable
// from any non-terminal state.
const (
	StatusPendingPayment  = "pending_payment"
	StatusPaid            = "paid"
	StatusPickupScheduled = "pickup_scheduled"
	StatusInTransit       = "in_transit"
	StatusReadyForPickup  = "ready_for_pickup"
	StatusCollected       = "collected"
	StatusCancelled       = "cancelled"
	StatusExpired         = "expired"
)

// IsTerminalStatus reports whether no further transitions are accepted.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCollected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Order binds a buyer, a listing and a locker through the fulfillment
// lifecycle. Prices are stored in minor currency units.
type Order struct {
	ID          int64 `json:"id"`
	ListingID   int64 `json:"listing_id"`
	LockerID    int64 `json:"locker_id"`
	BuyerID     int64 `json:"buyer_id"`
	SellerID    int64 `json:"seller_id"`
	ItemPrice   int64 `json:"item_price"`
	DeliveryFee int64 `json:"delivery_fee"`
	TotalPrice  int64 `json:"total_price"`

	Status          string    `json:"status"`
	ReservedAt      time.Time `json:"reserved_at"`
	PaymentDeadline time.Time `json:"payment_deadline"`

	PaidAt          *time.Time `json:"paid_at,omitempty"`
	PickupTime      *time.Time `json:"pickup_time,omitempty"`
	RiderPickedUpAt *time.Time `json:"rider_picked_up_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	PickedUpAt      *time.Time `json:"picked_up_at,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`

	// CompartmentNumber and PickupPin are assigned when the item is
	// delivered into the locker and must stay empty before that.
	CompartmentNumber int64  `json:"compartment_number,omitempty"`
	PickupPin         string `json:"pickup_pin,omitempty"`
	PointsAwarded     int64  `json:"points_awarded,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// HoldsCompartment reports whether the order currently claims a
// compartment slot in its locker.
func (o *Order) HoldsCompartment() bool {
	return !IsTerminalStatus(o.Status)
}
