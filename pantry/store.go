/*
store.go - Persistence interfaces for the ledger

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Row-level reads and writes for every ledger table
  TxStore: Transactional wrapper (atomic multi-row mutations)

MUTATION CONTRACT:
  Batch rows are never deleted; UpdateBatch is the only way a batch
  changes after creation, and implementations must enforce the optimistic
  Version check: the update applies only when the stored version matches
  the caller's snapshot, otherwise ErrConcurrentModification.

ATOMICITY:
  Every ledger operation (allocate, discard, reverse, record trip) runs
  inside WithTx so cost computation and row mutation succeed or fail
  together. A failure mid-allocation leaves the committed state untouched.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - pantry/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: The engine driving these interfaces
*/
package pantry

import "context"

// =============================================================================
// STORE - Row-level persistence
// =============================================================================

type Store interface {
	// Ingredients
	InsertIngredient(ctx context.Context, ing *Ingredient) error
	GetIngredient(ctx context.Context, id IngredientID) (*Ingredient, error)
	FindIngredientByName(ctx context.Context, name string) (*Ingredient, error)
	ListIngredients(ctx context.Context) ([]Ingredient, error)

	// Batches. Get* return nil (no error) when the row doesn't exist.
	InsertBatch(ctx context.Context, b *Batch) error
	GetBatch(ctx context.Context, id BatchID) (*Batch, error)

	// UpdateBatch persists a mutated batch. The write applies only when the
	// stored Version equals b.Version; on success the stored version (and
	// b.Version) is incremented. A mismatch returns ErrConcurrentModification.
	UpdateBatch(ctx context.Context, b *Batch) error

	// BatchesForAllocation returns batches with Remaining > 0 for the
	// ingredient, in FIFO order (see FIFOBefore).
	BatchesForAllocation(ctx context.Context, id IngredientID) ([]Batch, error)

	// BatchesForRestore returns batches with Remaining < Quantity for the
	// ingredient, in FIFO order.
	BatchesForRestore(ctx context.Context, id IngredientID) ([]Batch, error)

	// LatestBatch returns the most recently purchased batch for the
	// ingredient regardless of depletion state, or nil when none exists.
	LatestBatch(ctx context.Context, id IngredientID) (*Batch, error)

	// ActiveBatches returns every batch with Remaining > 0, across all
	// ingredients, for the read-side reports.
	ActiveBatches(ctx context.Context) ([]Batch, error)
	BatchesByEvent(ctx context.Context, id EventID) ([]Batch, error)

	// Shopping events
	InsertEvent(ctx context.Context, e *ShoppingEvent) error
	GetEvent(ctx context.Context, id EventID) (*ShoppingEvent, error)
	UpdateEvent(ctx context.Context, e *ShoppingEvent) error
	EventsInRange(ctx context.Context, from, to Date) ([]ShoppingEvent, error)
	ListEvents(ctx context.Context) ([]ShoppingEvent, error)

	// Usages
	InsertUsage(ctx context.Context, u *Usage) error
	GetUsage(ctx context.Context, id UsageID) (*Usage, error)
	DeleteUsage(ctx context.Context, id UsageID) error
	UsagesInRange(ctx context.Context, from, to Date) ([]Usage, error)
	UsagesOn(ctx context.Context, day Date) ([]Usage, error)

	// Allocation trace
	InsertAllocations(ctx context.Context, lines []AllocationLine) error
	AllocationsForUsage(ctx context.Context, id UsageID) ([]AllocationLine, error)
	DeleteAllocationsForUsage(ctx context.Context, id UsageID) error

	// Unit matrix
	SaveUnit(ctx context.Context, u Unit) error
	GetUnit(ctx context.Context, name string) (*Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support. Concurrent transactions
// touching the same ingredient's batches are serialized by the
// implementation (a write lock in the in-memory store, the single-writer
// database transaction plus version checks in SQLite).
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
