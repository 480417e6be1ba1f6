package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/yourorg/stockledger/internal/domain"
)

var _ domain.AuditRepository = (*PostgresAuditRepository)(nil)

// PostgresAuditRepository implements domain.AuditRepository. It is
// read-only: audit rows are only ever written through InventoryTx so
// they commit or roll back with the mutation they describe.
type PostgresAuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAuditRepository creates a new audit log repository
func NewPostgresAuditRepository(db *sql.DB, logger *slog.Logger) *PostgresAuditRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAuditRepository{
		db:     db,
		logger: logger,
	}
}

const auditColumns = `id, action, item_id, user_id, COALESCE(changes, ''), timestamp`

// List returns audit entries, newest first
func (r *PostgresAuditRepository) List(ctx context.Context, page domain.Page) ([]*domain.AuditLog, error) {
	page = page.Normalize()

	query := `SELECT ` + auditColumns + `
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, page.Limit, page.Skip)
	if err != nil {
		r.logger.Error("failed to list audit logs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	return collectAuditLogs(rows)
}

// ListForItem returns the full audit history of one item id, newest
// first. The id stays queryable after the item row itself is deleted.
func (r *PostgresAuditRepository) ListForItem(ctx context.Context, itemID int64) ([]*domain.AuditLog, error) {
	query := `SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE item_id = $1
		ORDER BY timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list item audit logs: %w", err)
	}
	defer rows.Close()

	return collectAuditLogs(rows)
}

func collectAuditLogs(rows *sql.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		entry := &domain.AuditLog{}
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.ItemID,
			&entry.UserID,
			&entry.Changes,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// insertAuditLog appends one immutable row using the caller's
// transaction scope. There is no update or delete counterpart.
func insertAuditLog(ctx context.Context, q querier, entry *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (action, item_id, user_id, changes)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, timestamp
	`

	err := q.QueryRowContext(
		ctx,
		query,
		entry.Action,
		entry.ItemID,
		entry.UserID,
		entry.Changes,
	).Scan(&entry.ID, &entry.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}
