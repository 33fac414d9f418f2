package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pickpoint/internal/models"
)

const orderColumns = `id, listing_id, locker_id, buyer_id, seller_id,
                 item_price, delivery_fee, total_price, status,
                 reserved_at, payment_deadline, paid_at, pickup_time,
                 rider_picked_up_at, delivered_at, picked_up_at,
                 cancel_reason, compartment_number, pickup_pin,
                 points_awarded, created_at, updated_at, version`

// CreateOrderWithLock inserts a new pending_payment order inside a
// transaction that re-checks compartment availability, so two concurrent
// reservations cannot overclaim the same locker.
func (db *DB) CreateOrderWithLock(ctx context.Context, order *models.Order) error {
	db.mu.RLock()
	locker, ok := db.lockersCache[order.LockerID]
	window := db.paymentWindow
	db.mu.RUnlock()
	if !ok {
		return ErrLockerNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Check availability inside transaction
	var claimed int64
	queryCount := `SELECT COUNT(*) FROM orders WHERE locker_id = ? AND status NOT IN (?, ?, ?)`
	err = tx.QueryRowContext(ctx, queryCount, order.LockerID,
		models.StatusCollected, models.StatusCancelled, models.StatusExpired).Scan(&claimed)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if claimed >= locker.TotalCompartments {
		return ErrNoCompartment
	}

	// 2. Create order
	now := time.Now()
	order.Status = models.StatusPendingPayment
	order.ReservedAt = now
	order.PaymentDeadline = now.Add(window)
	order.TotalPrice = order.ItemPrice + order.DeliveryFee

	queryInsert := `INSERT INTO orders (
                listing_id, locker_id, buyer_id, seller_id,
                item_price, delivery_fee, total_price, status,
                reserved_at, payment_deadline, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, queryInsert,
		order.ListingID,
		order.LockerID,
		order.BuyerID,
		order.SellerID,
		order.ItemPrice,
		order.DeliveryFee,
		order.TotalPrice,
		order.Status,
		order.ReservedAt,
		order.PaymentDeadline,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	order.ID = id
	order.CreatedAt = now
	order.UpdatedAt = now
	order.Version = 1

	return tx.Commit()
}

func (db *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	order, err := scanOrder(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (db *DB) GetBuyerOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = ? ORDER BY reserved_at DESC`
	return db.queryOrders(ctx, query, buyerID)
}

func (db *DB) GetSellerOrders(ctx context.Context, sellerID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE seller_id = ? ORDER BY reserved_at DESC`
	return db.queryOrders(ctx, query, sellerID)
}

func (db *DB) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// MarkPaid records payment on a pending_payment order.
func (db *DB) MarkPaid(ctx context.Context, id, fromVersion int64, paidAt time.Time) error {
	query := `UPDATE orders SET status = ?, paid_at = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	return db.execVersioned(ctx, query, models.StatusPaid, paidAt, time.Now(), id, fromVersion)
}

// MarkScheduled records the agreed rider pickup time.
func (db *DB) MarkScheduled(ctx context.Context, id, fromVersion int64, pickupTime time.Time) error {
	query := `UPDATE orders SET status = ?, pickup_time = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	return db.execVersioned(ctx, query, models.StatusPickupScheduled, pickupTime, time.Now(), id, fromVersion)
}

// MarkRiderPickedUp moves the order to in_transit.
func (db *DB) MarkRiderPickedUp(ctx context.Context, id, fromVersion int64, at time.Time) error {
	query := `UPDATE orders SET status = ?, rider_picked_up_at = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	return db.execVersioned(ctx, query, models.StatusInTransit, at, time.Now(), id, fromVersion)
}

// MarkDelivered moves the order to ready_for_pickup, assigning the lowest
// free compartment number and the pickup PIN inside one transaction.
func (db *DB) MarkDelivered(ctx context.Context, order *models.Order, pin string, at time.Time) error {
	db.mu.RLock()
	locker, ok := db.lockersCache[order.LockerID]
	db.mu.RUnlock()
	if !ok {
		return ErrLockerNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Compartment numbers already occupied by undelivered-yet-uncollected
	// orders in this locker.
	queryUsed := `SELECT compartment_number FROM orders
                  WHERE locker_id = ? AND compartment_number > 0 AND status NOT IN (?, ?, ?)`
	rows, err := tx.QueryContext(ctx, queryUsed, order.LockerID,
		models.StatusCollected, models.StatusCancelled, models.StatusExpired)
	if err != nil {
		return fmt.Errorf("failed to query used compartments: %w", err)
	}
	used := make(map[int64]bool)
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan compartment number: %w", err)
		}
		used[n] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	var compartment int64
	for n := int64(1); n <= locker.TotalCompartments; n++ {
		if !used[n] {
			compartment = n
			break
		}
	}
	if compartment == 0 {
		return ErrNoCompartment
	}

	query := `UPDATE orders SET status = ?, delivered_at = ?, compartment_number = ?, pickup_pin = ?,
                  version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		models.StatusReadyForPickup, at, compartment, pin, time.Now(), order.ID, order.Version)
	if err != nil {
		return fmt.Errorf("failed to mark order delivered: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	order.CompartmentNumber = compartment
	return nil
}

// MarkCollected finalizes a successful PIN verification. Points are
// awarded in the same versioned update so a retried verification can
// never double-award.
func (db *DB) MarkCollected(ctx context.Context, id, fromVersion int64, at time.Time, points int64) error {
	query := `UPDATE orders SET status = ?, picked_up_at = ?, points_awarded = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	return db.execVersioned(ctx, query, models.StatusCollected, at, points, time.Now(), id, fromVersion)
}

// MarkCancelled records a cancellation and its reason.
func (db *DB) MarkCancelled(ctx context.Context, id, fromVersion int64, reason string) error {
	query := `UPDATE orders SET status = ?, cancel_reason = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	return db.execVersioned(ctx, query, models.StatusCancelled, reason, time.Now(), id, fromVersion)
}

// ExpireOverdueOrders transitions every pending_payment order past its
// payment deadline to expired and returns the affected ids. Used by the
// expiry worker; the compartment claim is released by the status change
// itself since availability is derived from non-terminal orders.
func (db *DB) ExpireOverdueOrders(ctx context.Context, now time.Time) ([]int64, error) {
	querySelect := `SELECT id FROM orders WHERE status = ? AND payment_deadline <= ?`
	rows, err := db.QueryContext(ctx, querySelect, models.StatusPendingPayment, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select overdue orders: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan overdue order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	var expired []int64
	for _, id := range ids {
		query := `UPDATE orders SET status = ?, cancel_reason = ?, version = version + 1, updated_at = ?
                  WHERE id = ? AND status = ? AND payment_deadline <= ?`
		result, err := db.ExecContext(ctx, query,
			models.StatusExpired, models.CancelReasonPayment, time.Now(), id, models.StatusPendingPayment, now)
		if err != nil {
			return expired, fmt.Errorf("failed to expire order %d: %w", id, err)
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (db *DB) execVersioned(ctx context.Context, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var paidAt, pickupTime, riderPickedUpAt, deliveredAt, pickedUpAt sql.NullTime
	err := row.Scan(
		&order.ID, &order.ListingID, &order.LockerID, &order.BuyerID, &order.SellerID,
		&order.ItemPrice, &order.DeliveryFee, &order.TotalPrice, &order.Status,
		&order.ReservedAt, &order.PaymentDeadline, &paidAt, &pickupTime,
		&riderPickedUpAt, &deliveredAt, &pickedUpAt,
		&order.CancelReason, &order.CompartmentNumber, &order.PickupPin,
		&order.PointsAwarded, &order.CreatedAt, &order.UpdatedAt, &order.Version,
	)
	if err != nil {
		return nil, err
	}
	order.PaidAt = nullableTime(paidAt)
	order.PickupTime = nullableTime(pickupTime)
	order.RiderPickedUpAt = nullableTime(riderPickedUpAt)
	order.DeliveredAt = nullableTime(deliveredAt)
	order.PickedUpAt = nullableTime(pickedUpAt)
	return &order, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
