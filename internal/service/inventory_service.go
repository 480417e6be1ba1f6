package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/stockledger/internal/domain"
	"github.com/yourorg/stockledger/internal/observability/metrics"
	"github.com/yourorg/stockledger/internal/stream"
)

const (
	maxNameLength = 255
	maxSKULength  = 100

	statsCacheKey = "inventory:stats"
	statsCacheTTL = 30 * time.Second
)

// StatsCache caches the stats aggregate between mutations. Implemented
// by the Redis client in production and the in-memory cache otherwise.
type StatsCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// CreateItemInput carries the fields of a create request.
type CreateItemInput struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
}

// UpdateItemInput carries an update request. Nil fields were absent
// from the request and do not participate in the diff.
type UpdateItemInput struct {
	Name        *string  `json:"name"`
	SKU         *string  `json:"sku"`
	Description *string  `json:"description"`
	Quantity    *int     `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Category    *string  `json:"category"`
	Location    *string  `json:"location"`
}

// InventoryService is the mutation engine: it validates and applies
// create/update/delete operations, computing field-level diffs and
// recording each mutation in the audit trail within the same
// transaction.
type InventoryService struct {
	store    domain.InventoryStore
	recorder *AuditRecorder
	cache    StatsCache
	hub      *stream.Hub
	logger   *slog.Logger
}

// NewInventoryService creates an inventory service. cache and hub may
// be nil, disabling stats caching and the live audit feed.
func NewInventoryService(
	store domain.InventoryStore,
	recorder *AuditRecorder,
	cache StatsCache,
	hub *stream.Hub,
	logger *slog.Logger,
) *InventoryService {
	if logger == nil {
		logger = slog.Default()
	}

	return &InventoryService{
		store:    store,
		recorder: recorder,
		cache:    cache,
		hub:      hub,
		logger:   logger,
	}
}

// Create validates and persists a new item attributed to the actor,
// with a CREATE audit entry carrying the full created-field snapshot.
func (s *InventoryService) Create(ctx context.Context, actor *domain.User, input CreateItemInput) (*domain.InventoryItem, error) {
	if err := validateCreate(input); err != nil {
		metrics.ObserveMutation("create", "invalid")
		return nil, err
	}

	// Friendlier error than a raw constraint violation. The unique
	// index remains the real guard under concurrency.
	if _, err := s.store.GetBySKU(ctx, input.SKU); err == nil {
		metrics.ObserveMutation("create", "conflict")
		return nil, domain.ErrDuplicateSKU
	} else if !errors.Is(err, domain.ErrItemNotFound) {
		return nil, err
	}

	item := &domain.InventoryItem{
		Name:        input.Name,
		SKU:         input.SKU,
		Description: input.Description,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		Category:    input.Category,
		Location:    input.Location,
		CreatedBy:   actor.ID,
	}

	var entry *domain.AuditLog
	err := s.store.Mutate(ctx, func(tx domain.InventoryTx) error {
		if err := tx.InsertItem(ctx, item); err != nil {
			return err
		}
		var err error
		entry, err = s.recorder.Record(ctx, tx, domain.ActionCreate, &item.ID, actor.ID, createSnapshot(input))
		return err
	})
	if err != nil {
		metrics.ObserveMutation("create", mutationResult(err))
		return nil, err
	}

	s.afterMutation(ctx, entry)
	metrics.ObserveMutation("create", "ok")
	s.logger.Info("inventory item created",
		slog.Int64("item_id", item.ID),
		slog.String("sku", item.SKU),
		slog.Int64("actor_id", actor.ID),
	)
	return item, nil
}

// Update loads the item, computes the field-level diff, and applies it
// together with one UPDATE audit entry. An empty diff leaves the row
// untouched and writes no audit entry.
func (s *InventoryService) Update(ctx context.Context, actor *domain.User, id int64, input UpdateItemInput) (*domain.InventoryItem, error) {
	if err := validateUpdate(input); err != nil {
		metrics.ObserveMutation("update", "invalid")
		return nil, err
	}

	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		metrics.ObserveMutation("update", mutationResult(err))
		return nil, err
	}

	changes := applyDiff(item, input)
	if len(changes) == 0 {
		// Idempotent no-op: no write, no audit entry, updated_at
		// stays put.
		return item, nil
	}

	var entry *domain.AuditLog
	err = s.store.Mutate(ctx, func(tx domain.InventoryTx) error {
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}
		var err error
		entry, err = s.recorder.Record(ctx, tx, domain.ActionUpdate, &item.ID, actor.ID, changes)
		return err
	})
	if err != nil {
		metrics.ObserveMutation("update", mutationResult(err))
		return nil, err
	}

	s.afterMutation(ctx, entry)
	metrics.ObserveMutation("update", "ok")
	s.logger.Info("inventory item updated",
		slog.Int64("item_id", item.ID),
		slog.Int("changed_fields", len(changes)),
		slog.Int64("actor_id", actor.ID),
	)
	return item, nil
}

// Delete removes the item. The audit entry is written before the row
// delete, inside the same transaction, so the record exists even
// though the referenced row is about to vanish.
func (s *InventoryService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		metrics.ObserveMutation("delete", mutationResult(err))
		return err
	}

	var entry *domain.AuditLog
	err = s.store.Mutate(ctx, func(tx domain.InventoryTx) error {
		var err error
		entry, err = s.recorder.Record(ctx, tx, domain.ActionDelete, &item.ID, actor.ID,
			map[string]string{"deleted_item": item.Name})
		if err != nil {
			return err
		}
		return tx.DeleteItem(ctx, id)
	})
	if err != nil {
		metrics.ObserveMutation("delete", mutationResult(err))
		return err
	}

	s.afterMutation(ctx, entry)
	metrics.ObserveMutation("delete", "ok")
	s.logger.Info("inventory item deleted",
		slog.Int64("item_id", id),
		slog.String("name", item.Name),
		slog.Int64("actor_id", actor.ID),
	)
	return nil
}

// Get returns a single item by id.
func (s *InventoryService) Get(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	return s.store.GetByID(ctx, id)
}

// List returns items matching the filter, newest first.
func (s *InventoryService) List(ctx context.Context, filter domain.ItemFilter, page domain.Page) ([]*domain.InventoryItem, error) {
	return s.store.List(ctx, filter, page)
}

// Stats returns the inventory aggregates, served from cache when a
// mutation has not invalidated it.
func (s *InventoryService) Stats(ctx context.Context) (*domain.InventoryStats, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, statsCacheKey); ok {
			stats := &domain.InventoryStats{}
			if err := json.Unmarshal([]byte(cached), stats); err == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			s.cache.Set(ctx, statsCacheKey, string(payload), statsCacheTTL)
		}
	}
	return stats, nil
}

// afterMutation runs the post-commit side effects: the stats cache is
// stale and stream subscribers want the committed entry.
func (s *InventoryService) afterMutation(ctx context.Context, entry *domain.AuditLog) {
	if s.cache != nil {
		s.cache.Delete(ctx, statsCacheKey)
	}
	if entry != nil {
		metrics.AuditEntryWritten(string(entry.Action))
		if s.hub != nil {
			s.hub.Publish(*entry)
		}
	}
}

func validateCreate(input CreateItemInput) error {
	if input.Name == "" || len(input.Name) > maxNameLength {
		return domain.ValidationErrorf("name must be 1-%d characters", maxNameLength)
	}
	if input.SKU == "" || len(input.SKU) > maxSKULength {
		return domain.ValidationErrorf("sku must be 1-%d characters", maxSKULength)
	}
	if input.Quantity < 0 {
		return domain.ValidationErrorf("quantity must not be negative")
	}
	if input.UnitPrice < 0 {
		return domain.ValidationErrorf("unit_price must not be negative")
	}
	return nil
}

func validateUpdate(input UpdateItemInput) error {
	if input.Name != nil && (*input.Name == "" || len(*input.Name) > maxNameLength) {
		return domain.ValidationErrorf("name must be 1-%d characters", maxNameLength)
	}
	if input.SKU != nil && (*input.SKU == "" || len(*input.SKU) > maxSKULength) {
		return domain.ValidationErrorf("sku must be 1-%d characters", maxSKULength)
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return domain.ValidationErrorf("quantity must not be negative")
	}
	if input.UnitPrice != nil && *input.UnitPrice < 0 {
		return domain.ValidationErrorf("unit_price must not be negative")
	}
	return nil
}

// applyDiff mutates item in place for every present field whose value
// differs, returning exactly those fields with their old/new pair.
func applyDiff(item *domain.InventoryItem, input UpdateItemInput) map[string]domain.FieldChange {
	changes := make(map[string]domain.FieldChange)

	if input.Name != nil && *input.Name != item.Name {
		changes["name"] = domain.FieldChange{Old: item.Name, New: *input.Name}
		item.Name = *input.Name
	}
	if input.SKU != nil && *input.SKU != item.SKU {
		changes["sku"] = domain.FieldChange{Old: item.SKU, New: *input.SKU}
		item.SKU = *input.SKU
	}
	if input.Description != nil && *input.Description != item.Description {
		changes["description"] = domain.FieldChange{Old: item.Description, New: *input.Description}
		item.Description = *input.Description
	}
	if input.Quantity != nil && *input.Quantity != item.Quantity {
		changes["quantity"] = domain.FieldChange{Old: item.Quantity, New: *input.Quantity}
		item.Quantity = *input.Quantity
	}
	if input.UnitPrice != nil && *input.UnitPrice != item.UnitPrice {
		changes["unit_price"] = domain.FieldChange{Old: item.UnitPrice, New: *input.UnitPrice}
		item.UnitPrice = *input.UnitPrice
	}
	if input.Category != nil && *input.Category != item.Category {
		changes["category"] = domain.FieldChange{Old: item.Category, New: *input.Category}
		item.Category = *input.Category
	}
	if input.Location != nil && *input.Location != item.Location {
		changes["location"] = domain.FieldChange{Old: item.Location, New: *input.Location}
		item.Location = *input.Location
	}

	return changes
}

// createSnapshot is the CREATE audit payload: every field of the new
// item as submitted.
func createSnapshot(input CreateItemInput) map[string]any {
	return map[string]any{
		"name":        input.Name,
		"sku":         input.SKU,
		"description": input.Description,
		"quantity":    input.Quantity,
		"unit_price":  input.UnitPrice,
		"category":    input.Category,
		"location":    input.Location,
	}
}

func mutationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateSKU):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
