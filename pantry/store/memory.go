// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hearth/pantry-engine/pantry"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	ingredients map[pantry.IngredientID]pantry.Ingredient
	batches     map[pantry.BatchID]pantry.Batch
	events      map[pantry.EventID]pantry.ShoppingEvent
	usages      map[pantry.UsageID]pantry.Usage
	allocations map[pantry.UsageID][]pantry.AllocationLine
	units       map[string]pantry.Unit

	nextIngredient pantry.IngredientID
	nextBatch      pantry.BatchID
	nextEvent      pantry.EventID
	nextUsage      pantry.UsageID
}

func NewMemory() *Memory {
	return &Memory{
		ingredients: make(map[pantry.IngredientID]pantry.Ingredient),
		batches:     make(map[pantry.BatchID]pantry.Batch),
		events:      make(map[pantry.EventID]pantry.ShoppingEvent),
		usages:      make(map[pantry.UsageID]pantry.Usage),
		allocations: make(map[pantry.UsageID][]pantry.AllocationLine),
		units:       make(map[string]pantry.Unit),
	}
}

// =============================================================================
// INGREDIENTS
// =============================================================================

func (m *Memory) InsertIngredient(_ context.Context, ing *pantry.Ingredient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertIngredientLocked(ing)
}

func (m *Memory) insertIngredientLocked(ing *pantry.Ingredient) error {
	m.nextIngredient++
	ing.ID = m.nextIngredient
	m.ingredients[ing.ID] = *ing
	return nil
}

func (m *Memory) GetIngredient(_ context.Context, id pantry.IngredientID) (*pantry.Ingredient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getIngredientLocked(id)
}

func (m *Memory) getIngredientLocked(id pantry.IngredientID) (*pantry.Ingredient, error) {
	ing, ok := m.ingredients[id]
	if !ok {
		return nil, nil
	}
	return &ing, nil
}

func (m *Memory) FindIngredientByName(_ context.Context, name string) (*pantry.Ingredient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findIngredientByNameLocked(name)
}

func (m *Memory) findIngredientByNameLocked(name string) (*pantry.Ingredient, error) {
	for _, ing := range m.ingredients {
		if strings.EqualFold(ing.Name, name) {
			out := ing
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListIngredients(_ context.Context) ([]pantry.Ingredient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listIngredientsLocked()
}

func (m *Memory) listIngredientsLocked() ([]pantry.Ingredient, error) {
	out := make([]pantry.Ingredient, 0, len(m.ingredients))
	for _, ing := range m.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// BATCHES
// =============================================================================

func (m *Memory) InsertBatch(_ context.Context, b *pantry.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertBatchLocked(b)
}

func (m *Memory) insertBatchLocked(b *pantry.Batch) error {
	m.nextBatch++
	b.ID = m.nextBatch
	b.Version = 1
	m.batches[b.ID] = *b
	return nil
}

func (m *Memory) GetBatch(_ context.Context, id pantry.BatchID) (*pantry.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBatchLocked(id)
}

func (m *Memory) getBatchLocked(id pantry.BatchID) (*pantry.Batch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) UpdateBatch(_ context.Context, b *pantry.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateBatchLocked(b)
}

func (m *Memory) updateBatchLocked(b *pantry.Batch) error {
	stored, ok := m.batches[b.ID]
	if !ok {
		return pantry.ErrBatchNotFound
	}
	if stored.Version != b.Version {
		return pantry.ErrConcurrentModification
	}
	b.Version++
	m.batches[b.ID] = *b
	return nil
}

func (m *Memory) BatchesForAllocation(_ context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batchesForAllocationLocked(id)
}

func (m *Memory) batchesForAllocationLocked(id pantry.IngredientID) ([]pantry.Batch, error) {
	var out []pantry.Batch
	for _, b := range m.batches {
		if b.IngredientID == id && b.Remaining.IsPositive() {
			out = append(out, b)
		}
	}
	sortFIFO(out)
	return out, nil
}

func (m *Memory) BatchesForRestore(_ context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batchesForRestoreLocked(id)
}

func (m *Memory) batchesForRestoreLocked(id pantry.IngredientID) ([]pantry.Batch, error) {
	var out []pantry.Batch
	for _, b := range m.batches {
		if b.IngredientID == id && b.Remaining.LessThan(b.Quantity) {
			out = append(out, b)
		}
	}
	sortFIFO(out)
	return out, nil
}

func (m *Memory) LatestBatch(_ context.Context, id pantry.IngredientID) (*pantry.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestBatchLocked(id)
}

func (m *Memory) latestBatchLocked(id pantry.IngredientID) (*pantry.Batch, error) {
	var latest *pantry.Batch
	for _, b := range m.batches {
		if b.IngredientID != id {
			continue
		}
		b := b
		if latest == nil || latest.PurchaseDate.Before(b.PurchaseDate) ||
			(latest.PurchaseDate.Equal(b.PurchaseDate) && latest.ID < b.ID) {
			latest = &b
		}
	}
	return latest, nil
}

func (m *Memory) ActiveBatches(_ context.Context) ([]pantry.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeBatchesLocked()
}

func (m *Memory) activeBatchesLocked() ([]pantry.Batch, error) {
	var out []pantry.Batch
	for _, b := range m.batches {
		if b.Remaining.IsPositive() {
			out = append(out, b)
		}
	}
	sortFIFO(out)
	return out, nil
}

func (m *Memory) BatchesByEvent(_ context.Context, id pantry.EventID) ([]pantry.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batchesByEventLocked(id)
}

func (m *Memory) batchesByEventLocked(id pantry.EventID) ([]pantry.Batch, error) {
	var out []pantry.Batch
	for _, b := range m.batches {
		if b.EventID == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortFIFO(batches []pantry.Batch) {
	sort.Slice(batches, func(i, j int) bool {
		return pantry.FIFOBefore(&batches[i], &batches[j])
	})
}

// =============================================================================
// SHOPPING EVENTS
// =============================================================================

func (m *Memory) InsertEvent(_ context.Context, e *pantry.ShoppingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertEventLocked(e)
}

func (m *Memory) insertEventLocked(e *pantry.ShoppingEvent) error {
	m.nextEvent++
	e.ID = m.nextEvent
	m.events[e.ID] = *e
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id pantry.EventID) (*pantry.ShoppingEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEventLocked(id)
}

func (m *Memory) getEventLocked(id pantry.EventID) (*pantry.ShoppingEvent, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) UpdateEvent(_ context.Context, e *pantry.ShoppingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateEventLocked(e)
}

func (m *Memory) updateEventLocked(e *pantry.ShoppingEvent) error {
	if _, ok := m.events[e.ID]; !ok {
		return pantry.ErrEventNotFound
	}
	m.events[e.ID] = *e
	return nil
}

func (m *Memory) EventsInRange(_ context.Context, from, to pantry.Date) ([]pantry.ShoppingEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventsInRangeLocked(from, to)
}

func (m *Memory) eventsInRangeLocked(from, to pantry.Date) ([]pantry.ShoppingEvent, error) {
	var out []pantry.ShoppingEvent
	for _, e := range m.events {
		if from.BeforeOrEqual(e.Date) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListEvents(_ context.Context) ([]pantry.ShoppingEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEventsLocked()
}

func (m *Memory) listEventsLocked() ([]pantry.ShoppingEvent, error) {
	out := make([]pantry.ShoppingEvent, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// USAGES
// =============================================================================

func (m *Memory) InsertUsage(_ context.Context, u *pantry.Usage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertUsageLocked(u)
}

func (m *Memory) insertUsageLocked(u *pantry.Usage) error {
	m.nextUsage++
	u.ID = m.nextUsage
	m.usages[u.ID] = *u
	return nil
}

func (m *Memory) GetUsage(_ context.Context, id pantry.UsageID) (*pantry.Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUsageLocked(id)
}

func (m *Memory) getUsageLocked(id pantry.UsageID) (*pantry.Usage, error) {
	u, ok := m.usages[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) DeleteUsage(_ context.Context, id pantry.UsageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteUsageLocked(id)
}

func (m *Memory) deleteUsageLocked(id pantry.UsageID) error {
	if _, ok := m.usages[id]; !ok {
		return pantry.ErrUsageNotFound
	}
	delete(m.usages, id)
	return nil
}

func (m *Memory) UsagesInRange(_ context.Context, from, to pantry.Date) ([]pantry.Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usagesInRangeLocked(from, to)
}

func (m *Memory) usagesInRangeLocked(from, to pantry.Date) ([]pantry.Usage, error) {
	var out []pantry.Usage
	for _, u := range m.usages {
		if from.BeforeOrEqual(u.Date) && u.Date.Before(to) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UsagesOn(_ context.Context, day pantry.Date) ([]pantry.Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usagesOnLocked(day)
}

func (m *Memory) usagesOnLocked(day pantry.Date) ([]pantry.Usage, error) {
	var out []pantry.Usage
	for _, u := range m.usages {
		if u.Date.Equal(day) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// ALLOCATION TRACE
// =============================================================================

func (m *Memory) InsertAllocations(_ context.Context, lines []pantry.AllocationLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAllocationsLocked(lines)
}

func (m *Memory) insertAllocationsLocked(lines []pantry.AllocationLine) error {
	for _, line := range lines {
		m.allocations[line.UsageID] = append(m.allocations[line.UsageID], line)
	}
	return nil
}

func (m *Memory) AllocationsForUsage(_ context.Context, id pantry.UsageID) ([]pantry.AllocationLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocationsForUsageLocked(id)
}

func (m *Memory) allocationsForUsageLocked(id pantry.UsageID) ([]pantry.AllocationLine, error) {
	lines := m.allocations[id]
	out := make([]pantry.AllocationLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (m *Memory) DeleteAllocationsForUsage(_ context.Context, id pantry.UsageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAllocationsForUsageLocked(id)
}

func (m *Memory) deleteAllocationsForUsageLocked(id pantry.UsageID) error {
	delete(m.allocations, id)
	return nil
}

// =============================================================================
// UNIT MATRIX
// =============================================================================

func (m *Memory) SaveUnit(_ context.Context, u pantry.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnitLocked(u)
}

func (m *Memory) saveUnitLocked(u pantry.Unit) error {
	m.units[u.Name] = u
	return nil
}

func (m *Memory) GetUnit(_ context.Context, name string) (*pantry.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUnitLocked(name)
}

func (m *Memory) getUnitLocked(name string) (*pantry.Unit, error) {
	u, ok := m.units[name]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ListUnits(_ context.Context) ([]pantry.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listUnitsLocked()
}

func (m *Memory) listUnitsLocked() ([]pantry.Unit, error) {
	out := make([]pantry.Unit, 0, len(m.units))
	for _, u := range m.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. The write lock is held for the
// whole transaction, which also serializes concurrent ledger operations.
// Rollback is simulated with a snapshot + restore on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(pantry.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	ingredients map[pantry.IngredientID]pantry.Ingredient
	batches     map[pantry.BatchID]pantry.Batch
	events      map[pantry.EventID]pantry.ShoppingEvent
	usages      map[pantry.UsageID]pantry.Usage
	allocations map[pantry.UsageID][]pantry.AllocationLine
	units       map[string]pantry.Unit

	nextIngredient pantry.IngredientID
	nextBatch      pantry.BatchID
	nextEvent      pantry.EventID
	nextUsage      pantry.UsageID
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		ingredients: make(map[pantry.IngredientID]pantry.Ingredient, len(tm.ingredients)),
		batches:     make(map[pantry.BatchID]pantry.Batch, len(tm.batches)),
		events:      make(map[pantry.EventID]pantry.ShoppingEvent, len(tm.events)),
		usages:      make(map[pantry.UsageID]pantry.Usage, len(tm.usages)),
		allocations: make(map[pantry.UsageID][]pantry.AllocationLine, len(tm.allocations)),
		units:       make(map[string]pantry.Unit, len(tm.units)),

		nextIngredient: tm.nextIngredient,
		nextBatch:      tm.nextBatch,
		nextEvent:      tm.nextEvent,
		nextUsage:      tm.nextUsage,
	}
	for k, v := range tm.ingredients {
		s.ingredients[k] = v
	}
	for k, v := range tm.batches {
		s.batches[k] = v
	}
	for k, v := range tm.events {
		s.events[k] = v
	}
	for k, v := range tm.usages {
		s.usages[k] = v
	}
	for k, v := range tm.allocations {
		s.allocations[k] = append([]pantry.AllocationLine{}, v...)
	}
	for k, v := range tm.units {
		s.units[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.ingredients = s.ingredients
	tm.batches = s.batches
	tm.events = s.events
	tm.usages = s.usages
	tm.allocations = s.allocations
	tm.units = s.units

	tm.nextIngredient = s.nextIngredient
	tm.nextBatch = s.nextBatch
	tm.nextEvent = s.nextEvent
	tm.nextUsage = s.nextUsage
}

// txMemoryView routes calls to the parent's unlocked methods; the parent's
// write lock is already held by WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) InsertIngredient(_ context.Context, ing *pantry.Ingredient) error {
	return tv.parent.insertIngredientLocked(ing)
}
func (tv *txMemoryView) GetIngredient(_ context.Context, id pantry.IngredientID) (*pantry.Ingredient, error) {
	return tv.parent.getIngredientLocked(id)
}
func (tv *txMemoryView) FindIngredientByName(_ context.Context, name string) (*pantry.Ingredient, error) {
	return tv.parent.findIngredientByNameLocked(name)
}
func (tv *txMemoryView) ListIngredients(_ context.Context) ([]pantry.Ingredient, error) {
	return tv.parent.listIngredientsLocked()
}
func (tv *txMemoryView) InsertBatch(_ context.Context, b *pantry.Batch) error {
	return tv.parent.insertBatchLocked(b)
}
func (tv *txMemoryView) GetBatch(_ context.Context, id pantry.BatchID) (*pantry.Batch, error) {
	return tv.parent.getBatchLocked(id)
}
func (tv *txMemoryView) UpdateBatch(_ context.Context, b *pantry.Batch) error {
	return tv.parent.updateBatchLocked(b)
}
func (tv *txMemoryView) BatchesForAllocation(_ context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	return tv.parent.batchesForAllocationLocked(id)
}
func (tv *txMemoryView) BatchesForRestore(_ context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	return tv.parent.batchesForRestoreLocked(id)
}
func (tv *txMemoryView) LatestBatch(_ context.Context, id pantry.IngredientID) (*pantry.Batch, error) {
	return tv.parent.latestBatchLocked(id)
}
func (tv *txMemoryView) ActiveBatches(_ context.Context) ([]pantry.Batch, error) {
	return tv.parent.activeBatchesLocked()
}
func (tv *txMemoryView) BatchesByEvent(_ context.Context, id pantry.EventID) ([]pantry.Batch, error) {
	return tv.parent.batchesByEventLocked(id)
}
func (tv *txMemoryView) InsertEvent(_ context.Context, e *pantry.ShoppingEvent) error {
	return tv.parent.insertEventLocked(e)
}
func (tv *txMemoryView) GetEvent(_ context.Context, id pantry.EventID) (*pantry.ShoppingEvent, error) {
	return tv.parent.getEventLocked(id)
}
func (tv *txMemoryView) UpdateEvent(_ context.Context, e *pantry.ShoppingEvent) error {
	return tv.parent.updateEventLocked(e)
}
func (tv *txMemoryView) EventsInRange(_ context.Context, from, to pantry.Date) ([]pantry.ShoppingEvent, error) {
	return tv.parent.eventsInRangeLocked(from, to)
}
func (tv *txMemoryView) ListEvents(_ context.Context) ([]pantry.ShoppingEvent, error) {
	return tv.parent.listEventsLocked()
}
func (tv *txMemoryView) InsertUsage(_ context.Context, u *pantry.Usage) error {
	return tv.parent.insertUsageLocked(u)
}
func (tv *txMemoryView) GetUsage(_ context.Context, id pantry.UsageID) (*pantry.Usage, error) {
	return tv.parent.getUsageLocked(id)
}
func (tv *txMemoryView) DeleteUsage(_ context.Context, id pantry.UsageID) error {
	return tv.parent.deleteUsageLocked(id)
}
func (tv *txMemoryView) UsagesInRange(_ context.Context, from, to pantry.Date) ([]pantry.Usage, error) {
	return tv.parent.usagesInRangeLocked(from, to)
}
func (tv *txMemoryView) UsagesOn(_ context.Context, day pantry.Date) ([]pantry.Usage, error) {
	return tv.parent.usagesOnLocked(day)
}
func (tv *txMemoryView) InsertAllocations(_ context.Context, lines []pantry.AllocationLine) error {
	return tv.parent.insertAllocationsLocked(lines)
}
func (tv *txMemoryView) AllocationsForUsage(_ context.Context, id pantry.UsageID) ([]pantry.AllocationLine, error) {
	return tv.parent.allocationsForUsageLocked(id)
}
func (tv *txMemoryView) DeleteAllocationsForUsage(_ context.Context, id pantry.UsageID) error {
	return tv.parent.deleteAllocationsForUsageLocked(id)
}
func (tv *txMemoryView) SaveUnit(_ context.Context, u pantry.Unit) error {
	return tv.parent.saveUnitLocked(u)
}
func (tv *txMemoryView) GetUnit(_ context.Context, name string) (*pantry.Unit, error) {
	return tv.parent.getUnitLocked(name)
}
func (tv *txMemoryView) ListUnits(_ context.Context) ([]pantry.Unit, error) {
	return tv.parent.listUnitsLocked()
}
