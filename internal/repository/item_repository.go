package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/yourorg/stockledger/internal/domain"
)

var (
	_ domain.InventoryStore = (*PostgresItemRepository)(nil)
	_ domain.InventoryTx    = (*itemTx)(nil)
)

// PostgresItemRepository implements domain.InventoryStore using PostgreSQL
type PostgresItemRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresItemRepository creates a new inventory item repository
func NewPostgresItemRepository(db *sql.DB, logger *slog.Logger) *PostgresItemRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresItemRepository{
		db:     db,
		logger: logger,
	}
}

const itemColumns = `id, name, sku, COALESCE(description, ''), quantity, unit_price,
	COALESCE(category, ''), COALESCE(location, ''), created_by, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanItem(row *sql.Row) (*domain.InventoryItem, error) {
	item := &domain.InventoryItem{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.SKU,
		&item.Description,
		&item.Quantity,
		&item.UnitPrice,
		&item.Category,
		&item.Location,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetByID retrieves an item by ID
func (r *PostgresItemRepository) GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// GetBySKU retrieves an item by its SKU
func (r *PostgresItemRepository) GetBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE sku = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item by sku: %w", err)
	}

	return item, nil
}

// List returns items matching the filter, newest first
func (r *PostgresItemRepository) List(ctx context.Context, filter domain.ItemFilter, page domain.Page) ([]*domain.InventoryItem, error) {
	page = page.Normalize()

	query := `SELECT ` + itemColumns + ` FROM inventory_items`
	var (
		conds []string
		args  []any
	)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE $%d OR sku ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	args = append(args, page.Limit, page.Skip)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list items", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.InventoryItem
	for rows.Next() {
		item := &domain.InventoryItem{}
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.SKU,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.Category,
			&item.Location,
			&item.CreatedBy,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Stats computes the inventory aggregates in one round trip. Rounding
// happens in SQL to keep the two-decimal contract away from float math.
func (r *PostgresItemRepository) Stats(ctx context.Context) (*domain.InventoryStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(ROUND(CAST(SUM(quantity * unit_price) AS numeric), 2), 0),
			COUNT(*) FILTER (WHERE quantity < $1),
			COUNT(DISTINCT category)
		FROM inventory_items
	`

	stats := &domain.InventoryStats{}
	err := r.db.QueryRowContext(ctx, query, domain.LowStockThreshold).Scan(
		&stats.TotalItems,
		&stats.TotalValue,
		&stats.LowStockItems,
		&stats.CategoriesCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return stats, nil
}

// Mutate runs fn inside one transaction. The deferred rollback is a
// no-op after a successful commit; on any error the item mutation and
// its audit entry disappear together.
func (r *PostgresItemRepository) Mutate(ctx context.Context, fn func(tx domain.InventoryTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&itemTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// itemTx is the transaction-scoped view handed to mutations.
type itemTx struct {
	tx *sql.Tx
}

// InsertItem inserts a new item within the transaction
func (t *itemTx) InsertItem(ctx context.Context, item *domain.InventoryItem) error {
	query := `
		INSERT INTO inventory_items
			(name, sku, description, quantity, unit_price, category, location, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING id, created_at, updated_at
	`

	err := t.tx.QueryRowContext(
		ctx,
		query,
		item.Name,
		item.SKU,
		item.Description,
		item.Quantity,
		item.UnitPrice,
		item.Category,
		item.Location,
		item.CreatedBy,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateSKU
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

// UpdateItem writes every mutable field of the item within the transaction
func (t *itemTx) UpdateItem(ctx context.Context, item *domain.InventoryItem) error {
	query := `
		UPDATE inventory_items
		SET name = $1, sku = $2, description = NULLIF($3, ''), quantity = $4,
			unit_price = $5, category = NULLIF($6, ''), location = NULLIF($7, ''),
			updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`

	err := t.tx.QueryRowContext(
		ctx,
		query,
		item.Name,
		item.SKU,
		item.Description,
		item.Quantity,
		item.UnitPrice,
		item.Category,
		item.Location,
		item.ID,
	).Scan(&item.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrItemNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateSKU
		}
		return fmt.Errorf("failed to update item: %w", err)
	}

	return nil
}

// DeleteItem removes an item row within the transaction
func (t *itemTx) DeleteItem(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// InsertAuditLog appends an audit entry within the transaction
func (t *itemTx) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	return insertAuditLog(ctx, t.tx, entry)
}
