package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/yourorg/stockledger/pkg/config"
)

// ConnectionPool manages database connections
type ConnectionPool struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctxTest, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctxTest); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected successfully",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
	)

	return &ConnectionPool{
		db:     db,
		logger: logger,
	}, nil
}

// GetDB returns the underlying sql.DB connection
func (cp *ConnectionPool) GetDB() *sql.DB {
	return cp.db
}

// Close closes the database connection
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Health checks the database health
func (cp *ConnectionPool) Health(ctx context.Context) error {
	ctxTest, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return cp.db.PingContext(ctxTest)
}

// Migrate creates the schema if it does not exist. The unique indexes
// on email, username, and sku are the real uniqueness guard: the
// application pre-checks only exist to produce friendlier errors, and
// a concurrent insert racing past them still fails here. audit_logs
// deliberately has no foreign key on item_id so log rows keep the id
// of items deleted later.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name     TEXT,
			role          TEXT NOT NULL DEFAULT 'viewer'
				CHECK (role IN ('admin', 'manager', 'viewer')),
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL,
			sku         TEXT NOT NULL UNIQUE,
			description TEXT,
			quantity    INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			unit_price  DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (unit_price >= 0),
			category    TEXT,
			location    TEXT,
			created_by  BIGINT NOT NULL REFERENCES users (id),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_items_category
			ON inventory_items (category)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_items_created_at
			ON inventory_items (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id        BIGSERIAL PRIMARY KEY,
			action    TEXT NOT NULL CHECK (action IN ('CREATE', 'UPDATE', 'DELETE')),
			item_id   BIGINT,
			user_id   BIGINT NOT NULL REFERENCES users (id),
			changes   TEXT,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_item_id
			ON audit_logs (item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp
			ON audit_logs (timestamp DESC)`,
	}

	for _, stmt := range statements {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	cp.logger.Info("database schema up to date")
	return nil
}
