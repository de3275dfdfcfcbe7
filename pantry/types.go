/*
Package pantry provides the kitchen inventory and cost ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  grocery purchases batch by batch, depleting stock first-in-first-out
  when meals are cooked, attributing waste cost to shopping trips, and
  rolling everything up into daily/monthly spending reports.

KEY CONCEPTS IN THIS FILE (types.go):
  - Ingredient: a named food item with a standard measurement unit
  - Batch: one purchase lot with its own unit cost and remaining quantity
  - ShoppingEvent: one grocery trip grouping the batches bought together
  - Usage: one consumption record, costed by the FIFO allocator
  - AllocationLine: which batch a usage drew from, and how much

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for every quantity and cost
  2. Permanence: Batch rows are never deleted; they are the ledger history
  3. Type Safety: Distinct ID types prevent mixing batch/usage/event ids
  4. Traceability: Every usage records exactly which batches it consumed

SEE ALSO:
  - allocator.go: FIFO cost allocation
  - waste.go: Discard handling
  - reversal.go: Undoing a usage
  - store.go: Persistence interfaces
*/
package pantry

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type IngredientID int64
type BatchID int64
type EventID int64
type UsageID int64

// =============================================================================
// INGREDIENT - A named food item with a canonical unit
// =============================================================================

// MeasureMode controls how strictly quantities are tracked for an ingredient.
type MeasureMode string

const (
	ModePrecision MeasureMode = "precision" // weighed/measured exactly
	ModeSimple    MeasureMode = "simple"    // rough household estimates
)

// StandardUnit is the canonical unit all quantities of an ingredient are
// normalized to before they hit the ledger.
type StandardUnit string

const (
	UnitGram       StandardUnit = "g"
	UnitMillilitre StandardUnit = "ml"
	UnitCount      StandardUnit = "count"
)

type Ingredient struct {
	ID           IngredientID
	Name         string
	Category     string
	Mode         MeasureMode
	StandardUnit StandardUnit
}

// =============================================================================
// BATCH - One purchase lot of an ingredient
// =============================================================================

type BatchStatus string

const (
	StatusActive    BatchStatus = "active"
	StatusDiscarded BatchStatus = "discarded"
)

// Batch is one purchase lot. Quantity and UnitCost are fixed at creation;
// Remaining is decremented by the allocator and the waste recorder and
// incremented by usage reversal. Invariant at all times:
//
//	0 <= Remaining <= Quantity
//	DiscardedQty + Remaining + consumed-to-date == Quantity
//
// Batches are never physically deleted; an empty batch is ledger history.
type Batch struct {
	ID           BatchID
	IngredientID IngredientID
	EventID      EventID // 0 when the batch was entered outside a trip
	PurchaseDate Date
	ExpiryDate   *Date // nil when unknown
	Quantity      decimal.Decimal
	Remaining     decimal.Decimal
	UnitCost      decimal.Decimal
	DiscardedQty  decimal.Decimal
	DiscardedCost decimal.Decimal
	Status        BatchStatus

	// Version is bumped on every persisted mutation. Stores use it as an
	// optimistic concurrency check so two writers cannot both decrement
	// Remaining from the same snapshot.
	Version int64
}

// Value returns the cost of the stock still sitting in this batch.
func (b *Batch) Value() decimal.Decimal {
	return b.Remaining.Mul(b.UnitCost)
}

// Space returns how much quantity a reversal could restore into this batch.
func (b *Batch) Space() decimal.Decimal {
	return b.Quantity.Sub(b.Remaining)
}

// Depleted reports whether the batch has no stock left.
func (b *Batch) Depleted() bool {
	return !b.Remaining.IsPositive()
}

// FIFOBefore defines the allocation order between two batches: oldest
// purchase date first, then soonest expiry (batches without an expiry sort
// after those with one), then lowest id. The same order is used when
// restoring quantity on reversal. It is total and deterministic.
func FIFOBefore(a, b *Batch) bool {
	if !a.PurchaseDate.Equal(b.PurchaseDate) {
		return a.PurchaseDate.Before(b.PurchaseDate)
	}
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate == nil:
		return true
	case a.ExpiryDate == nil && b.ExpiryDate != nil:
		return false
	case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ExpiryDate.Before(*b.ExpiryDate)
	}
	return a.ID < b.ID
}

// =============================================================================
// SHOPPING EVENT - One grocery trip
// =============================================================================

// ShoppingEvent groups the batches bought on one trip. TotalCost is fixed
// when the trip is recorded; TotalWaste accumulates as child batches are
// discarded.
type ShoppingEvent struct {
	ID         EventID
	Date       Date
	Place      string
	TotalCost  decimal.Decimal
	TotalWaste decimal.Decimal
}

// =============================================================================
// USAGE - One consumption record
// =============================================================================

// Usage records a single cook/consumption action. Quantity is in the
// ingredient's standard unit; InputLabel preserves what the user actually
// typed ("1.5 큰술"). Cost is computed by the FIFO allocator at creation
// and never changes; deleting a usage reverses its ledger effect.
type Usage struct {
	ID           UsageID
	IngredientID IngredientID
	Date         Date
	MealType     string
	InputLabel   string
	Quantity     decimal.Decimal
	Cost         decimal.Decimal
}

// AllocationLine records that a usage drew Quantity units from Batch.
// The trace makes reversal exact instead of a FIFO approximation.
type AllocationLine struct {
	UsageID  UsageID
	BatchID  BatchID
	Quantity decimal.Decimal
}

// =============================================================================
// UNIT MATRIX - Human units to standard units
// =============================================================================

// Unit converts a named household unit (tablespoon, cup) into the
// ingredient's standard unit via a fixed multiplier. Static reference data.
type Unit struct {
	Name            string
	RatioToStandard decimal.Decimal
	GuideImageURL   string
}

// =============================================================================
// ALLOCATION RESULT
// =============================================================================

// AllocationResult is what the FIFO allocator hands back: the total cost of
// the quantity it managed to source, the per-batch trace, and any shortfall
// it could not cover. Shortfall is cost-free by design; callers decide
// whether to surface it.
type AllocationResult struct {
	Cost      decimal.Decimal
	Lines     []AllocationLine
	Shortfall decimal.Decimal
}

// Short reports whether demand exceeded the available stock.
func (r AllocationResult) Short() bool {
	return r.Shortfall.IsPositive()
}
