package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourorg/stockledger/internal/domain"
)

// AuditRecorder serializes change payloads and appends audit entries.
// It never commits: every write goes through the caller's transaction
// scope, so the entry is durable exactly when the mutation is.
type AuditRecorder struct{}

// NewAuditRecorder creates an audit recorder
func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{}
}

// Record appends one immutable entry within tx. changes may be nil; a
// non-nil value is JSON-encoded into the opaque payload column.
func (ar *AuditRecorder) Record(
	ctx context.Context,
	tx domain.InventoryTx,
	action domain.AuditAction,
	itemID *int64,
	actorID int64,
	changes any,
) (*domain.AuditLog, error) {
	entry := &domain.AuditLog{
		Action: action,
		ItemID: itemID,
		UserID: actorID,
	}

	if changes != nil {
		payload, err := json.Marshal(changes)
		if err != nil {
			return nil, fmt.Errorf("failed to encode change payload: %w", err)
		}
		entry.Changes = string(payload)
	}

	if err := tx.InsertAuditLog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
