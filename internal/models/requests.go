package models

// CreateOrderRequest carries the fields needed to reserve a compartment
// for a listing in a chosen locker.
type CreateOrderRequest struct {
	ListingID   int64 `json:"listing_id"`
	LockerID    int64 `json:"locker_id"`
	BuyerID     int64 `json:"buyer_id"`
	SellerID    int64 `json:"seller_id"`
	ItemPrice   int64 `json:"item_price"`
	DeliveryFee int64 `json:"delivery_fee"`
}

// VerifyPinResult pairs the collected order with the loyalty points
// awarded for the pickup.
type VerifyPinResult struct {
	Order         *Order `json:"order"`
	PointsAwarded int64  `json:"points_awarded"`
}
