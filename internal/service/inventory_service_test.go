package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/stockledger/internal/domain"
)

// memStore is an in-memory InventoryStore with real rollback
// semantics: Mutate snapshots state and restores it when fn fails, so
// the atomicity contract is observable in tests.
type memStore struct {
	items     map[int64]*domain.InventoryItem
	logs      []*domain.AuditLog
	nextItem  int64
	nextLog   int64
	failAudit error // injected failure for InsertAuditLog
}

func newMemStore() *memStore {
	return &memStore{items: map[int64]*domain.InventoryItem{}}
}

func copyItem(it *domain.InventoryItem) *domain.InventoryItem {
	c := *it
	return &c
}

func (s *memStore) GetByID(_ context.Context, id int64) (*domain.InventoryItem, error) {
	if it, ok := s.items[id]; ok {
		return copyItem(it), nil
	}
	return nil, domain.ErrItemNotFound
}

func (s *memStore) GetBySKU(_ context.Context, sku string) (*domain.InventoryItem, error) {
	for _, it := range s.items {
		if it.SKU == sku {
			return copyItem(it), nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (s *memStore) List(_ context.Context, filter domain.ItemFilter, page domain.Page) ([]*domain.InventoryItem, error) {
	page = page.Normalize()
	var all []*domain.InventoryItem
	for _, it := range s.items {
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(it.Name), needle) &&
				!strings.Contains(strings.ToLower(it.SKU), needle) &&
				!strings.Contains(strings.ToLower(it.Description), needle) {
				continue
			}
		}
		all = append(all, copyItem(it))
	}
	// newest first
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].CreatedAt.After(all[i].CreatedAt) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if page.Skip >= len(all) {
		return nil, nil
	}
	all = all[page.Skip:]
	if len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, nil
}

func (s *memStore) Stats(_ context.Context) (*domain.InventoryStats, error) {
	stats := &domain.InventoryStats{}
	categories := map[string]struct{}{}
	var total float64
	for _, it := range s.items {
		stats.TotalItems++
		total += float64(it.Quantity) * it.UnitPrice
		if it.Quantity < domain.LowStockThreshold {
			stats.LowStockItems++
		}
		if it.Category != "" {
			categories[it.Category] = struct{}{}
		}
	}
	stats.TotalValue = math.Round(total*100) / 100
	stats.CategoriesCount = len(categories)
	return stats, nil
}

func (s *memStore) Mutate(_ context.Context, fn func(tx domain.InventoryTx) error) error {
	// snapshot for rollback
	itemsBackup := make(map[int64]*domain.InventoryItem, len(s.items))
	for id, it := range s.items {
		itemsBackup[id] = copyItem(it)
	}
	logsBackup := len(s.logs)
	nextItem, nextLog := s.nextItem, s.nextLog

	if err := fn(&memTx{store: s}); err != nil {
		s.items = itemsBackup
		s.logs = s.logs[:logsBackup]
		s.nextItem, s.nextLog = nextItem, nextLog
		return err
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) InsertItem(_ context.Context, item *domain.InventoryItem) error {
	for _, it := range t.store.items {
		if it.SKU == item.SKU {
			return domain.ErrDuplicateSKU
		}
	}
	t.store.nextItem++
	item.ID = t.store.nextItem
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	t.store.items[item.ID] = copyItem(item)
	return nil
}

func (t *memTx) UpdateItem(_ context.Context, item *domain.InventoryItem) error {
	if _, ok := t.store.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	item.UpdatedAt = time.Now()
	t.store.items[item.ID] = copyItem(item)
	return nil
}

func (t *memTx) DeleteItem(_ context.Context, id int64) error {
	if _, ok := t.store.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(t.store.items, id)
	return nil
}

func (t *memTx) InsertAuditLog(_ context.Context, entry *domain.AuditLog) error {
	if t.store.failAudit != nil {
		return t.store.failAudit
	}
	t.store.nextLog++
	entry.ID = t.store.nextLog
	entry.Timestamp = time.Now()
	c := *entry
	t.store.logs = append(t.store.logs, &c)
	return nil
}

func testActor() *domain.User {
	return &domain.User{ID: 7, Email: "alice@x.com", Username: "alice", Role: domain.RoleManager, IsActive: true}
}

func newTestService(store *memStore) *InventoryService {
	return NewInventoryService(store, NewAuditRecorder(), nil, nil, nil)
}

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestCreateWritesAuditEntry(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)

	item, err := s.Create(context.Background(), testActor(), CreateItemInput{
		Name: "Widget", SKU: "SKU-1", Quantity: 5, UnitPrice: 10,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if item.ID == 0 || item.CreatedBy != 7 {
		t.Fatalf("unexpected item: %+v", item)
	}

	if len(store.logs) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(store.logs))
	}
	entry := store.logs[0]
	if entry.Action != domain.ActionCreate || entry.ItemID == nil || *entry.ItemID != item.ID || entry.UserID != 7 {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}

	var snapshot map[string]any
	if err := json.Unmarshal([]byte(entry.Changes), &snapshot); err != nil {
		t.Fatalf("change payload is not valid JSON: %v", err)
	}
	if snapshot["sku"] != "SKU-1" || snapshot["quantity"] != float64(5) {
		t.Fatalf("unexpected snapshot payload: %v", snapshot)
	}
}

func TestCreateRollsBackWhenAuditFails(t *testing.T) {
	store := newMemStore()
	store.failAudit = errors.New("audit insert failed")
	s := newTestService(store)

	_, err := s.Create(context.Background(), testActor(), CreateItemInput{
		Name: "Widget", SKU: "SKU-1", Quantity: 5, UnitPrice: 10,
	})
	if err == nil {
		t.Fatal("expected create to fail when audit write fails")
	}

	// No mutation without its audit entry: the item must not exist.
	if len(store.items) != 0 {
		t.Fatalf("item persisted without audit entry: %d items", len(store.items))
	}
	if len(store.logs) != 0 {
		t.Fatalf("audit entry persisted without mutation: %d entries", len(store.logs))
	}
}

func TestCreateDuplicateSKU(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	if _, err := s.Create(ctx, testActor(), CreateItemInput{Name: "A", SKU: "SKU-1", Quantity: 1, UnitPrice: 1}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := s.Create(ctx, testActor(), CreateItemInput{Name: "B", SKU: "SKU-1", Quantity: 2, UnitPrice: 2})
	if !errors.Is(err, domain.ErrDuplicateSKU) {
		t.Fatalf("expected ErrDuplicateSKU, got %v", err)
	}

	if len(store.items) != 1 {
		t.Fatalf("expected exactly one item with SKU-1, got %d", len(store.items))
	}
	if len(store.logs) != 1 {
		t.Fatalf("failed create must not leave an audit entry, got %d", len(store.logs))
	}
}

func TestCreateValidation(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	cases := []CreateItemInput{
		{Name: "", SKU: "SKU-1"},
		{Name: "A", SKU: ""},
		{Name: strings.Repeat("x", 256), SKU: "SKU-1"},
		{Name: "A", SKU: strings.Repeat("x", 101)},
		{Name: "A", SKU: "SKU-1", Quantity: -1},
		{Name: "A", SKU: "SKU-1", UnitPrice: -0.01},
	}
	for _, input := range cases {
		if _, err := s.Create(ctx, testActor(), input); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("input %+v: expected validation error, got %v", input, err)
		}
	}
	if len(store.items) != 0 || len(store.logs) != 0 {
		t.Fatal("rejected input must not touch storage")
	}
}

func TestUpdateNoopIsNotLogged(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	item, err := s.Create(ctx, testActor(), CreateItemInput{Name: "Widget", SKU: "SKU-1", Quantity: 5, UnitPrice: 10})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	before := store.items[item.ID].UpdatedAt
	logsBefore := len(store.logs)

	// Same values, and absent fields, do not participate in the diff.
	updated, err := s.Update(ctx, testActor(), item.ID, UpdateItemInput{
		Quantity:  intPtr(5),
		UnitPrice: floatPtr(10),
	})
	if err != nil {
		t.Fatalf("noop update failed: %v", err)
	}

	if len(store.logs) != logsBefore {
		t.Fatalf("noop update wrote an audit entry")
	}
	if !store.items[item.ID].UpdatedAt.Equal(before) {
		t.Fatal("noop update touched updated_at")
	}
	if updated.Quantity != 5 {
		t.Fatalf("unexpected item after noop: %+v", updated)
	}
}

func TestUpdateDiffIsExact(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	item, err := s.Create(ctx, testActor(), CreateItemInput{
		Name: "Widget", SKU: "SKU-1", Quantity: 5, UnitPrice: 10, Category: "tools",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := s.Update(ctx, testActor(), item.ID, UpdateItemInput{
		Quantity: intPtr(8),
		Name:     strPtr("Widget"),  // unchanged, must not appear
		Category: strPtr("hardware"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Quantity != 8 || updated.Category != "hardware" {
		t.Fatalf("diff not applied: %+v", updated)
	}

	entry := store.logs[len(store.logs)-1]
	if entry.Action != domain.ActionUpdate {
		t.Fatalf("expected UPDATE entry, got %s", entry.Action)
	}

	var changes map[string]domain.FieldChange
	if err := json.Unmarshal([]byte(entry.Changes), &changes); err != nil {
		t.Fatalf("change payload is not valid JSON: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("diff must contain exactly the changed fields, got %v", changes)
	}
	if changes["quantity"].Old != float64(5) || changes["quantity"].New != float64(8) {
		t.Fatalf("wrong quantity diff: %+v", changes["quantity"])
	}
	if changes["category"].Old != "tools" || changes["category"].New != "hardware" {
		t.Fatalf("wrong category diff: %+v", changes["category"])
	}
}

func TestUpdateMissingItem(t *testing.T) {
	s := newTestService(newMemStore())
	_, err := s.Update(context.Background(), testActor(), 42, UpdateItemInput{Quantity: intPtr(1)})
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestDeleteWritesAuditBeforeRemoval(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	item, err := s.Create(ctx, testActor(), CreateItemInput{Name: "Widget", SKU: "SKU-1", Quantity: 5, UnitPrice: 10})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.Delete(ctx, testActor(), item.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok := store.items[item.ID]; ok {
		t.Fatal("item row still present after delete")
	}

	entry := store.logs[len(store.logs)-1]
	if entry.Action != domain.ActionDelete {
		t.Fatalf("expected DELETE entry, got %s", entry.Action)
	}
	if entry.ItemID == nil || *entry.ItemID != item.ID {
		t.Fatal("delete entry must keep the removed item id")
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(entry.Changes), &payload); err != nil {
		t.Fatalf("change payload is not valid JSON: %v", err)
	}
	if payload["deleted_item"] != "Widget" {
		t.Fatalf("unexpected delete payload: %v", payload)
	}
}

func TestDeleteRollsBackWhenAuditFails(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	item, err := s.Create(ctx, testActor(), CreateItemInput{Name: "Widget", SKU: "SKU-1", Quantity: 5, UnitPrice: 10})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	store.failAudit = errors.New("audit insert failed")
	if err := s.Delete(ctx, testActor(), item.ID); err == nil {
		t.Fatal("expected delete to fail when audit write fails")
	}

	if _, ok := store.items[item.ID]; !ok {
		t.Fatal("item deleted without its audit entry")
	}
}

func TestStats(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	if _, err := s.Create(ctx, testActor(), CreateItemInput{Name: "A", SKU: "SKU-1", Quantity: 5, UnitPrice: 10, Category: "tools"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.Create(ctx, testActor(), CreateItemInput{Name: "B", SKU: "SKU-2", Quantity: 20, UnitPrice: 2, Category: "tools"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalItems != 2 {
		t.Errorf("total items = %d, want 2", stats.TotalItems)
	}
	if stats.TotalValue != 90.00 {
		t.Errorf("total value = %v, want 90.00", stats.TotalValue)
	}
	if stats.LowStockItems != 1 {
		t.Errorf("low stock items = %d, want 1", stats.LowStockItems)
	}
	if stats.CategoriesCount != 1 {
		t.Errorf("categories count = %d, want 1", stats.CategoriesCount)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	s := newTestService(newMemStore())
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalItems != 0 || stats.TotalValue != 0 || stats.LowStockItems != 0 || stats.CategoriesCount != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestStatsCacheInvalidatedOnMutation(t *testing.T) {
	store := newMemStore()
	statsCache := &fakeCache{data: map[string]string{}}
	s := NewInventoryService(store, NewAuditRecorder(), statsCache, nil, nil)
	ctx := context.Background()

	if _, err := s.Stats(ctx); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if _, ok := statsCache.data[statsCacheKey]; !ok {
		t.Fatal("stats were not cached")
	}

	if _, err := s.Create(ctx, testActor(), CreateItemInput{Name: "A", SKU: "SKU-1", Quantity: 5, UnitPrice: 10}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, ok := statsCache.data[statsCacheKey]; ok {
		t.Fatal("mutation did not invalidate the stats cache")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalItems != 1 {
		t.Fatalf("stale stats after invalidation: %+v", stats)
	}
}

type fakeCache struct {
	data map[string]string
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.data[key] = value
}

func (c *fakeCache) Delete(_ context.Context, key string) {
	delete(c.data, key)
}

func TestListFilters(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	ctx := context.Background()

	seed := []CreateItemInput{
		{Name: "Hammer", SKU: "TL-1", Quantity: 3, UnitPrice: 15, Category: "tools", Description: "claw hammer"},
		{Name: "Screwdriver", SKU: "TL-2", Quantity: 30, UnitPrice: 5, Category: "tools"},
		{Name: "Notebook", SKU: "ST-1", Quantity: 100, UnitPrice: 2, Category: "stationery"},
	}
	for _, in := range seed {
		if _, err := s.Create(ctx, testActor(), in); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
	}

	items, err := s.List(ctx, domain.ItemFilter{Search: "hammer"}, domain.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Hammer" {
		t.Fatalf("search filter wrong: %+v", items)
	}

	items, err = s.List(ctx, domain.ItemFilter{Category: "tools"}, domain.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("category filter wrong: got %d items", len(items))
	}

	// both filters AND-combined
	items, err = s.List(ctx, domain.ItemFilter{Search: "TL", Category: "stationery"}, domain.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("AND-combined filters wrong: %+v", items)
	}
}
