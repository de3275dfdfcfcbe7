/*
waste.go - Discarding spoiled stock

PURPOSE:
  Marks batch quantity as thrown away and attributes the lost money to the
  shopping trip that bought it. Waste cost accumulates additively on the
  owning event: each discard call applies exactly once, so repeated partial
  discards of the same batch sum correctly.

KNOWN LIMITATION:
  There is no inverse operation. Once quantity is discarded it cannot be
  moved back to remaining stock; an accidental discard has to be corrected
  by entering a new batch.
*/
package pantry

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PARTIAL / FULL DISCARD
// =============================================================================

// Discard throws away amount units of the batch and returns the waste cost
// (amount x unit cost). A nil amount discards everything still remaining.
// Discarding more than remains fails with ErrInvalidAmount and leaves the
// batch untouched.
func (l *Ledger) Discard(ctx context.Context, id BatchID, amount *decimal.Decimal) (decimal.Decimal, error) {
	var waste decimal.Decimal
	err := l.store.WithTx(ctx, func(s Store) error {
		b, err := s.GetBatch(ctx, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBatchNotFound
		}

		amt := b.Remaining
		if amount != nil {
			amt = *amount
		}
		if amt.IsNegative() {
			return &InvalidAmountError{Op: "discard", Requested: amt, Reason: "amount must be >= 0"}
		}
		if amt.GreaterThan(b.Remaining) {
			return &InvalidAmountError{Op: "discard", Requested: amt, Available: b.Remaining}
		}

		waste = amt.Mul(b.UnitCost)
		return applyDiscard(ctx, s, b, amt, waste)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return waste, nil
}

// SetFullyDiscarded discards the batch's entire remaining quantity. It is
// idempotent: a batch already in the discarded state is left alone, so a
// double-click or retried request cannot double-count waste.
func (l *Ledger) SetFullyDiscarded(ctx context.Context, id BatchID) error {
	return l.store.WithTx(ctx, func(s Store) error {
		b, err := s.GetBatch(ctx, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBatchNotFound
		}
		if b.Status == StatusDiscarded {
			return nil // already done
		}

		amt := b.Remaining
		waste := amt.Mul(b.UnitCost)
		if err := applyDiscard(ctx, s, b, amt, waste); err != nil {
			return err
		}
		if b.Status != StatusDiscarded {
			// Remaining was already zero; still flip the status.
			b.Status = StatusDiscarded
			return s.UpdateBatch(ctx, b)
		}
		return nil
	})
}

// applyDiscard mutates the batch and bumps the owning event's waste total.
func applyDiscard(ctx context.Context, s Store, b *Batch, amt, waste decimal.Decimal) error {
	b.Remaining = b.Remaining.Sub(amt)
	b.DiscardedQty = b.DiscardedQty.Add(amt)
	b.DiscardedCost = b.DiscardedCost.Add(waste)
	if b.Remaining.IsZero() {
		b.Status = StatusDiscarded
	}
	if err := s.UpdateBatch(ctx, b); err != nil {
		return err
	}

	if b.EventID != 0 {
		e, err := s.GetEvent(ctx, b.EventID)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrEventNotFound
		}
		e.TotalWaste = e.TotalWaste.Add(waste)
		if err := s.UpdateEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
