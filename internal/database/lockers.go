package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pickpoint/internal/models"
)

// SetLockers replaces the in-memory locker cache and upserts every locker
// into the lockers table. Called at startup with the config-seeded list.
func (db *DB) SetLockers(ctx context.Context, lockers []models.Locker) error {
	query := `INSERT INTO lockers (id, name, address, coordinates, total_compartments, operating_hours, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  address = excluded.address,
                  coordinates = excluded.coordinates,
                  total_compartments = excluded.total_compartments,
                  operating_hours = excluded.operating_hours,
                  status = excluded.status,
                  updated_at = excluded.updated_at`

	now := time.Now()
	cache := make(map[int64]models.Locker, len(lockers))
	for _, locker := range lockers {
		if locker.Status == "" {
			locker.Status = models.LockerStatusActive
		}
		_, err := db.ExecContext(ctx, query,
			locker.ID, locker.Name, locker.Address, locker.Coordinates,
			locker.TotalCompartments, locker.OperatingHours, locker.Status, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert locker %d: %w", locker.ID, err)
		}
		cache[locker.ID] = locker
	}

	db.mu.Lock()
	db.lockersCache = cache
	db.mu.Unlock()
	return nil
}

// GetLockers returns every locker with availability derived from active
// compartment claims: available = total - non-terminal orders.
func (db *DB) GetLockers(ctx context.Context) ([]models.Locker, error) {
	claims, err := db.activeClaimCounts(ctx)
	if err != nil {
		return nil, err
	}

	db.mu.RLock()
	lockers := make([]models.Locker, 0, len(db.lockersCache))
	for _, locker := range db.lockersCache {
		lockers = append(lockers, locker)
	}
	db.mu.RUnlock()

	for i := range lockers {
		available := lockers[i].TotalCompartments - claims[lockers[i].ID]
		if available < 0 {
			available = 0
		}
		lockers[i].AvailableCompartments = available
	}

	sort.Slice(lockers, func(i, j int) bool { return lockers[i].ID < lockers[j].ID })
	return lockers, nil
}

// GetLocker returns one locker with derived availability.
func (db *DB) GetLocker(ctx context.Context, id int64) (*models.Locker, error) {
	db.mu.RLock()
	locker, ok := db.lockersCache[id]
	db.mu.RUnlock()
	if !ok {
		return nil, ErrLockerNotFound
	}

	claimed, err := db.GetActiveClaimCount(ctx, id)
	if err != nil {
		return nil, err
	}

	available := locker.TotalCompartments - claimed
	if available < 0 {
		available = 0
	}
	locker.AvailableCompartments = available
	return &locker, nil
}

// GetActiveClaimCount counts orders currently holding a compartment in
// the locker.
func (db *DB) GetActiveClaimCount(ctx context.Context, lockerID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM orders WHERE locker_id = ? AND status NOT IN (?, ?, ?)`
	var count int64
	err := db.QueryRowContext(ctx, query, lockerID,
		models.StatusCollected, models.StatusCancelled, models.StatusExpired).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active claims: %w", err)
	}
	return count, nil
}

func (db *DB) activeClaimCounts(ctx context.Context) (map[int64]int64, error) {
	query := `SELECT locker_id, COUNT(*) FROM orders WHERE status NOT IN (?, ?, ?) GROUP BY locker_id`
	rows, err := db.QueryContext(ctx, query,
		models.StatusCollected, models.StatusCancelled, models.StatusExpired)
	if err != nil {
		return nil, fmt.Errorf("failed to count active claims: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var lockerID, count int64
		if err := rows.Scan(&lockerID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan claim count: %w", err)
		}
		counts[lockerID] = count
	}
	return counts, rows.Err()
}
