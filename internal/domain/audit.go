package domain

import (
	"context"
	"time"
)

// AuditAction is the closed set of recorded mutation kinds.
type AuditAction string

const (
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// AuditLog is an append-only record of one inventory mutation. Rows are
// written exactly once inside the mutating transaction and never
// updated or deleted. ItemID is a plain reference without a foreign
// key: the item row may be deleted later, but its audit history stays
// queryable under the original id.
type AuditLog struct {
	ID        int64       `json:"id"`
	Action    AuditAction `json:"action"`
	ItemID    *int64      `json:"item_id"`
	UserID    int64       `json:"user_id"`
	Changes   string      `json:"changes,omitempty"` // JSON diff or snapshot
	Timestamp time.Time   `json:"timestamp"`
}

// FieldChange is one entry of an UPDATE diff payload.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// AuditRepository is the read side of the audit trail. Writes go
// through InventoryTx so they share the mutation's transaction.
type AuditRepository interface {
	List(ctx context.Context, page Page) ([]*AuditLog, error)
	ListForItem(ctx context.Context, itemID int64) ([]*AuditLog, error)
}
