/*
allocator.go - FIFO cost allocation

PURPOSE:
  Satisfies a consumption request by walking the ingredient's batches
  oldest-first, taking stock and accumulating cost at each batch's own
  unit price. This is the one genuinely interesting piece of the system:
  the cost of "150g of pork" depends on which purchase lots it came from.

ORDERING:
  Batches are consumed in FIFOBefore order: purchase date ascending,
  expiry ascending with unknown expiries last, id ascending. The order is
  total, so allocation is deterministic.

SHORTFALL:
  If the batches run out before the request is filled, the shortfall is
  cost-free: there is no batch to charge it against. The allocator does
  not fail; it reports the shortfall in the result and lets the caller
  decide whether to surface it.

TRACE:
  Every take is recorded as an AllocationLine (batch id, quantity). The
  trace is persisted with the usage so reversal can be exact instead of
  a FIFO approximation.
*/
package pantry

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALLOCATION
// =============================================================================

// Allocate consumes needed units of the ingredient from its batches in FIFO
// order and returns the total cost. Both the batch mutations and the usage
// record written by RecordUsage commit in the same transaction.
func (l *Ledger) Allocate(ctx context.Context, id IngredientID, needed decimal.Decimal) (AllocationResult, error) {
	var result AllocationResult
	err := l.store.WithTx(ctx, func(s Store) error {
		var err error
		result, err = allocate(ctx, s, id, needed)
		return err
	})
	return result, err
}

// allocate is the transactional core shared by Allocate and RecordUsage.
func allocate(ctx context.Context, s Store, id IngredientID, needed decimal.Decimal) (AllocationResult, error) {
	if needed.IsNegative() {
		return AllocationResult{}, &InvalidAmountError{Op: "allocate", Requested: needed, Reason: "quantity must be >= 0"}
	}

	ing, err := s.GetIngredient(ctx, id)
	if err != nil {
		return AllocationResult{}, err
	}
	if ing == nil {
		return AllocationResult{}, ErrIngredientNotFound
	}

	batches, err := s.BatchesForAllocation(ctx, id)
	if err != nil {
		return AllocationResult{}, err
	}

	result := AllocationResult{Cost: decimal.Zero}
	toFill := needed

	for i := range batches {
		if !toFill.IsPositive() {
			break
		}
		b := &batches[i]

		take := decimal.Min(b.Remaining, toFill)
		b.Remaining = b.Remaining.Sub(take)
		if err := s.UpdateBatch(ctx, b); err != nil {
			return AllocationResult{}, err
		}

		result.Cost = result.Cost.Add(take.Mul(b.UnitCost))
		result.Lines = append(result.Lines, AllocationLine{BatchID: b.ID, Quantity: take})
		toFill = toFill.Sub(take)
	}

	result.Shortfall = toFill
	return result, nil
}

// =============================================================================
// USAGE RECORDING
// =============================================================================

// UsageInput describes one consumption action. Quantity must already be in
// the ingredient's standard unit; the caller converts human units via the
// unit matrix (see Converter) before calling.
type UsageInput struct {
	IngredientID IngredientID
	Date         Date
	MealType     string
	InputLabel   string
	Quantity     decimal.Decimal
}

// RecordUsage allocates the quantity via FIFO and writes the usage record
// plus its allocation trace, all in one transaction. The returned shortfall
// is the unfillable (cost-free) part of the request, zero when stock covered
// it fully.
func (l *Ledger) RecordUsage(ctx context.Context, in UsageInput) (*Usage, decimal.Decimal, error) {
	var (
		usage     *Usage
		shortfall = decimal.Zero
	)
	err := l.store.WithTx(ctx, func(s Store) error {
		result, err := allocate(ctx, s, in.IngredientID, in.Quantity)
		if err != nil {
			return err
		}
		shortfall = result.Shortfall

		u := &Usage{
			IngredientID: in.IngredientID,
			Date:         in.Date,
			MealType:     in.MealType,
			InputLabel:   in.InputLabel,
			Quantity:     in.Quantity,
			Cost:         result.Cost,
		}
		if err := s.InsertUsage(ctx, u); err != nil {
			return err
		}

		for i := range result.Lines {
			result.Lines[i].UsageID = u.ID
		}
		if err := s.InsertAllocations(ctx, result.Lines); err != nil {
			return err
		}

		usage = u
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return usage, shortfall, nil
}

// NextUnitCost returns the unit cost the next allocation for the ingredient
// would pay, i.e. the cost of its oldest non-empty batch. Zero when the
// ingredient has no stock. Used by the kitchen screen for cost estimates.
func (l *Ledger) NextUnitCost(ctx context.Context, id IngredientID) (decimal.Decimal, error) {
	batches, err := l.store.BatchesForAllocation(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if len(batches) == 0 {
		return decimal.Zero, nil
	}
	return batches[0].UnitCost, nil
}
