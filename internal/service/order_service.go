package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"pickpoint/internal/domain"
	"pickpoint/internal/events"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"

	"github.com/rs/zerolog"
)

// OrderService is the authoritative order state machine. Every transition
// is validated against the current status and committed with an optimistic
// version check; the client never advances status locally.
type OrderService struct {
	repo     domain.OrderRepository
	lockers  domain.LockerRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewOrderService(repo domain.OrderRepository, lockers domain.LockerRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		lockers:  lockers,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if req.ItemPrice < 0 || req.DeliveryFee < 0 {
		return nil, ErrInvalidPrice
	}

	locker, err := s.lockers.GetLocker(ctx, req.LockerID)
	if err != nil {
		return nil, err
	}
	if !locker.IsActive() {
		return nil, ErrLockerUnavailable
	}

	order := &models.Order{
		ListingID:   req.ListingID,
		LockerID:    req.LockerID,
		BuyerID:     req.BuyerID,
		SellerID:    req.SellerID,
		ItemPrice:   req.ItemPrice,
		DeliveryFee: req.DeliveryFee,
	}
	if err := s.repo.CreateOrderWithLock(ctx, order); err != nil {
		return nil, err
	}

	metrics.IncOrderTransition("", models.StatusPendingPayment)
	s.publishEvent(events.EventOrderCreated, order)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *OrderService) GetBuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	return s.repo.GetBuyerOrders(ctx, buyerID)
}

func (s *OrderService) GetSellerOrders(ctx context.Context, sellerID int64) ([]*models.Order, error) {
	return s.repo.GetSellerOrders(ctx, sellerID)
}

// Pay moves pending_payment to paid. A pay attempt past the deadline
// expires the order instead; the server clock is authoritative, not the
// client countdown.
func (s *OrderService) Pay(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(order, "pay", models.StatusPendingPayment); err != nil {
		return nil, err
	}

	now := time.Now()
	if now.After(order.PaymentDeadline) {
		if expireErr := s.expireOne(ctx, order); expireErr != nil {
			s.logger.Error().Err(expireErr).Int64("order_id", id).Msg("Failed to expire overdue order on pay attempt")
		}
		return nil, ErrPaymentExpired
	}

	if err := s.repo.MarkPaid(ctx, id, order.Version, now); err != nil {
		return nil, err
	}
	return s.reloadAndPublish(ctx, id, order.Status, events.EventOrderPaid)
}

// Schedule records the agreed rider pickup time on a paid order.
func (s *OrderService) Schedule(ctx context.Context, id int64, pickupTime time.Time) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(order, "schedule", models.StatusPaid); err != nil {
		return nil, err
	}
	if pickupTime.Before(time.Now()) {
		return nil, fmt.Errorf("%w: pickup time is in the past", ErrInvalidTransition)
	}

	if err := s.repo.MarkScheduled(ctx, id, order.Version, pickupTime); err != nil {
		return nil, err
	}
	return s.reloadAndPublish(ctx, id, order.Status, events.EventPickupScheduled)
}

// ConfirmRiderPickup moves pickup_scheduled to in_transit.
func (s *OrderService) ConfirmRiderPickup(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(order, "confirm rider pickup", models.StatusPickupScheduled); err != nil {
		return nil, err
	}

	if err := s.repo.MarkRiderPickedUp(ctx, id, order.Version, time.Now()); err != nil {
		return nil, err
	}
	return s.reloadAndPublish(ctx, id, order.Status, events.EventOrderInTransit)
}

// ConfirmDelivery moves in_transit to ready_for_pickup. The compartment
// number and pickup PIN come into existence here and nowhere earlier.
func (s *OrderService) ConfirmDelivery(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(order, "confirm delivery", models.StatusInTransit); err != nil {
		return nil, err
	}

	pin, err := GeneratePin(models.PinLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pickup pin: %w", err)
	}

	if err := s.repo.MarkDelivered(ctx, order, pin, time.Now()); err != nil {
		return nil, err
	}
	return s.reloadAndPublish(ctx, id, models.StatusInTransit, events.EventOrderReadyForPickup)
}

// VerifyPin arbitrates a pickup attempt. The check is tolerant of network
// retries: a second verification against an already collected order is
// rejected instead of double-awarding points.
func (s *OrderService) VerifyPin(ctx context.Context, id int64, pin string) (*models.Order, int64, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	if order.Status == models.StatusCollected {
		return nil, 0, ErrAlreadyCollected
	}
	if err := requireStatus(order, "verify pin", models.StatusReadyForPickup); err != nil {
		return nil, 0, err
	}
	if subtle.ConstantTimeCompare([]byte(order.PickupPin), []byte(pin)) != 1 {
		return nil, 0, ErrWrongPin
	}

	if err := s.repo.MarkCollected(ctx, id, order.Version, time.Now(), models.PickupPoints); err != nil {
		return nil, 0, err
	}

	updated, err := s.reloadAndPublish(ctx, id, order.Status, events.EventOrderCollected)
	if err != nil {
		return nil, 0, err
	}
	return updated, updated.PointsAwarded, nil
}

// Cancel is accepted while the parcel has not left the seller:
// pending_payment, paid or pickup_scheduled.
func (s *OrderService) Cancel(ctx context.Context, id int64, reason string) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(order, "cancel",
		models.StatusPendingPayment, models.StatusPaid, models.StatusPickupScheduled); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = models.CancelReasonBuyer
	}

	if err := s.repo.MarkCancelled(ctx, id, order.Version, reason); err != nil {
		return nil, err
	}
	return s.reloadAndPublish(ctx, id, order.Status, events.EventOrderCancelled)
}

// ExpireOverdue enforces the payment deadline server-side. Called
// periodically by the expiry worker.
func (s *OrderService) ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	ids, err := s.repo.ExpireOverdueOrders(ctx, now)
	if err != nil {
		return ids, err
	}

	for _, id := range ids {
		metrics.IncOrderTransition(models.StatusPendingPayment, models.StatusExpired)
		order, err := s.repo.GetOrder(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Int64("order_id", id).Msg("Failed to load expired order for event")
			continue
		}
		s.publishEvent(events.EventOrderExpired, order)
	}
	return ids, nil
}

func (s *OrderService) expireOne(ctx context.Context, order *models.Order) error {
	expired, err := s.repo.ExpireOverdueOrders(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, id := range expired {
		if id == order.ID {
			metrics.IncOrderTransition(models.StatusPendingPayment, models.StatusExpired)
			order.Status = models.StatusExpired
			s.publishEvent(events.EventOrderExpired, order)
		}
	}
	return nil
}

func (s *OrderService) reloadAndPublish(ctx context.Context, id int64, fromStatus, eventType string) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.IncOrderTransition(fromStatus, order.Status)
	s.publishEvent(eventType, order)
	return order, nil
}

func (s *OrderService) publishEvent(eventType string, order *models.Order) {
	payload := events.OrderEventPayload{
		OrderID:           order.ID,
		ListingID:         order.ListingID,
		LockerID:          order.LockerID,
		BuyerID:           order.BuyerID,
		SellerID:          order.SellerID,
		Status:            order.Status,
		CompartmentNumber: order.CompartmentNumber,
		CancelReason:      order.CancelReason,
		PointsAwarded:     order.PointsAwarded,
		OccurredAt:        time.Now(),
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Int64("order_id", order.ID).Msg("Failed to publish order event")
	}
}

func requireStatus(order *models.Order, trigger string, allowed ...string) error {
	for _, status := range allowed {
		if order.Status == status {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s order %d in status %s", ErrInvalidTransition, trigger, order.ID, order.Status)
}
