/*
reversal.go - Undoing a recorded usage

PURPOSE:
  Deleting a usage must also give its quantity back to the ledger. Two
  strategies exist:

  1. EXACT: every usage carries an allocation trace (batch id, quantity)
     written when it was costed. Restoring along the trace is a true
     inverse of the allocation.

  2. HEURISTIC: for usages without a trace (or traced batches that have
     gone missing), restore into the oldest partially-depleted batches
     first - mirroring the assumption that the oldest batches were the
     ones consumed. Leftover quantity lands on the most recent batch; if
     the ingredient has no batches at all the reversal fails with
     ErrInconsistentState rather than dropping stock silently.

  The heuristic is an approximation, not a true inverse, once several
  usages have interleaved against the same ingredient. That consistency
  gap is inherent to trace-less data and is documented rather than
  papered over.
*/
package pantry

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REVERSAL
// =============================================================================

// ReverseUsage restores the usage's quantity to the ledger and deletes the
// usage record, atomically. Reversing the same usage twice fails with
// ErrUsageNotFound on the second call.
func (l *Ledger) ReverseUsage(ctx context.Context, id UsageID) error {
	return l.store.WithTx(ctx, func(s Store) error {
		u, err := s.GetUsage(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUsageNotFound
		}

		toRestore := u.Quantity

		// Exact path: put quantity back where it came from.
		lines, err := s.AllocationsForUsage(ctx, id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if !toRestore.IsPositive() {
				break
			}
			b, err := s.GetBatch(ctx, line.BatchID)
			if err != nil {
				return err
			}
			if b == nil {
				continue // traced batch gone; heuristic picks up the remainder
			}
			give := decimal.Min(line.Quantity, toRestore)
			b.Remaining = b.Remaining.Add(give)
			if b.Status == StatusDiscarded && b.Remaining.IsPositive() {
				b.Status = StatusActive
			}
			if err := s.UpdateBatch(ctx, b); err != nil {
				return err
			}
			toRestore = toRestore.Sub(give)
		}

		if toRestore.IsPositive() {
			toRestore, err = restoreOldestFirst(ctx, s, u.IngredientID, toRestore)
			if err != nil {
				return err
			}
		}
		if toRestore.IsPositive() {
			return &RestoreError{UsageID: u.ID, IngredientID: u.IngredientID, Unplaced: toRestore}
		}

		if err := s.DeleteAllocationsForUsage(ctx, id); err != nil {
			return err
		}
		return s.DeleteUsage(ctx, id)
	})
}

// restoreOldestFirst fills partially-depleted batches in FIFO order, then
// dumps any leftover on the most recent batch regardless of its state.
// Returns whatever quantity could not be placed.
func restoreOldestFirst(ctx context.Context, s Store, id IngredientID, toRestore decimal.Decimal) (decimal.Decimal, error) {
	batches, err := s.BatchesForRestore(ctx, id)
	if err != nil {
		return toRestore, err
	}

	for i := range batches {
		if !toRestore.IsPositive() {
			break
		}
		b := &batches[i]

		give := decimal.Min(b.Space(), toRestore)
		if !give.IsPositive() {
			continue
		}
		b.Remaining = b.Remaining.Add(give)
		if b.Status == StatusDiscarded && b.Remaining.IsPositive() {
			b.Status = StatusActive
		}
		if err := s.UpdateBatch(ctx, b); err != nil {
			return toRestore, err
		}
		toRestore = toRestore.Sub(give)
	}

	if toRestore.IsPositive() {
		last, err := s.LatestBatch(ctx, id)
		if err != nil {
			return toRestore, err
		}
		if last != nil {
			last.Remaining = last.Remaining.Add(toRestore)
			if last.Status == StatusDiscarded {
				last.Status = StatusActive
			}
			if err := s.UpdateBatch(ctx, last); err != nil {
				return toRestore, err
			}
			toRestore = decimal.Zero
		}
	}

	return toRestore, nil
}
