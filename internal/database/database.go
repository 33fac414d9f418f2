package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pickpoint/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the SQLite connection and an in-memory locker cache.
// Lockers are seeded from config at startup and change only on reload,
// so the cache is refreshed wholesale via SetLockers.
type DB struct {
	*sql.DB

	mu           sync.RWMutex
	lockersCache map[int64]models.Locker

	paymentWindow time.Duration
	logger        *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("База данных инициализирована")
	return &DB{
		DB:            db,
		lockersCache:  make(map[int64]models.Locker),
		paymentWindow: models.PaymentWindow,
		logger:        logger,
	}, nil
}

// SetPaymentWindow overrides how long a new reservation stays payable.
// Called once at startup from config; non-positive values are ignored.
func (db *DB) SetPaymentWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	db.mu.Lock()
	db.paymentWindow = window
	db.mu.Unlock()
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица постаматов
		`CREATE TABLE IF NOT EXISTS lockers (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            address TEXT NOT NULL,
            coordinates TEXT NOT NULL,
            total_compartments INTEGER NOT NULL,
            operating_hours TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'active',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Таблица заказов
		`CREATE TABLE IF NOT EXISTS orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            listing_id INTEGER NOT NULL,
            locker_id INTEGER NOT NULL,
            buyer_id INTEGER NOT NULL,
            seller_id INTEGER NOT NULL,
            item_price INTEGER NOT NULL,
            delivery_fee INTEGER NOT NULL,
            total_price INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending_payment',
            reserved_at DATETIME NOT NULL,
            payment_deadline DATETIME NOT NULL,
            paid_at DATETIME,
            pickup_time DATETIME,
            rider_picked_up_at DATETIME,
            delivered_at DATETIME,
            picked_up_at DATETIME,
            cancel_reason TEXT NOT NULL DEFAULT '',
            compartment_number INTEGER NOT NULL DEFAULT 0,
            pickup_pin TEXT NOT NULL DEFAULT '',
            points_awarded INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_locker_status ON orders(locker_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_deadline ON orders(status, payment_deadline)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}
