package domain

import (
	"context"
	"time"
)

// InventoryItem is a stock record identified by a globally unique SKU.
// Quantity and unit price are never negative; the schema enforces both
// with CHECK constraints so the invariant holds even if a caller slips
// past application-level validation.
type InventoryItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"` // unique
	Description string    `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Category    string    `json:"category,omitempty"`
	Location    string    `json:"location,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemFilter narrows listings. Search is a case-insensitive substring
// match against name, SKU, and description (OR-combined); Category is
// an exact match. Both are AND-combined when both are set.
type ItemFilter struct {
	Search   string
	Category string
}

// Page is offset/limit pagination. Normalize clamps out-of-range values
// instead of rejecting them.
type Page struct {
	Skip  int
	Limit int
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Normalize returns a copy with skip >= 0 and limit in [1, MaxPageLimit].
// A zero limit means the caller did not specify one and gets the default.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// InventoryStats are the aggregates served by GET /inventory/stats.
type InventoryStats struct {
	TotalItems      int     `json:"total_items"`
	TotalValue      float64 `json:"total_value"` // sum(quantity*unit_price), 2 decimals
	LowStockItems   int     `json:"low_stock_items"`
	CategoriesCount int     `json:"categories_count"`
}

// LowStockThreshold is the fixed quantity below which an item counts as
// low stock.
const LowStockThreshold = 10

// InventoryTx is the transaction-scoped view handed to a mutation and
// its audit write. Implementations run every call inside the same
// database transaction; nothing is durable until Mutate commits.
type InventoryTx interface {
	InsertItem(ctx context.Context, item *InventoryItem) error
	UpdateItem(ctx context.Context, item *InventoryItem) error
	DeleteItem(ctx context.Context, id int64) error
	InsertAuditLog(ctx context.Context, entry *AuditLog) error
}

// InventoryStore defines data access for inventory items. Mutate runs
// fn inside a single transaction: if fn returns an error the whole
// transaction rolls back, so a mutation is never persisted without its
// audit entry and vice versa.
type InventoryStore interface {
	GetByID(ctx context.Context, id int64) (*InventoryItem, error)
	GetBySKU(ctx context.Context, sku string) (*InventoryItem, error)
	List(ctx context.Context, filter ItemFilter, page Page) ([]*InventoryItem, error)
	Stats(ctx context.Context) (*InventoryStats, error)
	Mutate(ctx context.Context, fn func(tx InventoryTx) error) error
}
