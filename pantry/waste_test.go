package pantry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/pantry-engine/pantry"
)

// =============================================================================
// PARTIAL DISCARD
// =============================================================================

func TestDiscard_PartialAmount(t *testing.T) {
	// GIVEN: A batch of 10 at unit cost 3
	// WHEN: Discarding 4
	// THEN: Waste cost is 12; remaining drops to 6, batch stays active

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "lettuce")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "10", "3")

	amt := dec("4")
	waste, err := ledger.Discard(ctx, id, &amt)
	require.NoError(t, err)

	assert.True(t, dec("12").Equal(waste))
	b := getBatch(t, s, id)
	assert.True(t, dec("6").Equal(b.Remaining))
	assert.True(t, dec("4").Equal(b.DiscardedQty))
	assert.True(t, dec("12").Equal(b.DiscardedCost))
	assert.Equal(t, pantry.StatusActive, b.Status)
}

func TestDiscard_NilAmount_DiscardsEverything(t *testing.T) {
	// GIVEN: A batch with 10 remaining
	// WHEN: Discarding with no amount
	// THEN: Everything goes; batch flips to discarded

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "spinach")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")

	waste, err := ledger.Discard(ctx, id, nil)
	require.NoError(t, err)

	assert.True(t, dec("20").Equal(waste))
	b := getBatch(t, s, id)
	assert.True(t, b.Remaining.IsZero())
	assert.Equal(t, pantry.StatusDiscarded, b.Status)
}

func TestDiscard_MoreThanRemaining_LeavesBatchUntouched(t *testing.T) {
	// GIVEN: A batch with 5 remaining
	// WHEN: Discarding 8
	// THEN: ErrInvalidAmount; nothing about the batch changed

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "yogurt")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "5", "2")

	amt := dec("8")
	_, err := ledger.Discard(ctx, id, &amt)

	assert.ErrorIs(t, err, pantry.ErrInvalidAmount)
	b := getBatch(t, s, id)
	assert.True(t, dec("5").Equal(b.Remaining))
	assert.True(t, b.DiscardedQty.IsZero())
	assert.Equal(t, int64(1), b.Version, "failed discard must not bump the version")
}

func TestDiscard_NegativeAmount_Rejected(t *testing.T) {
	ledger, s := newTestLedger(t)
	ing := addIngredient(t, s, "cheese")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "5", "2")

	amt := dec("-1")
	_, err := ledger.Discard(context.Background(), id, &amt)

	assert.ErrorIs(t, err, pantry.ErrInvalidAmount)
}

func TestDiscard_UnknownBatch_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Discard(context.Background(), pantry.BatchID(404), nil)

	assert.ErrorIs(t, err, pantry.ErrBatchNotFound)
}

func TestDiscard_AccumulatesEventWaste(t *testing.T) {
	// GIVEN: Two batches on one shopping event
	// WHEN: Discarding from both
	// THEN: The event's TotalWaste adds up across discards

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "tofu")
	event := &pantry.ShoppingEvent{Date: date(2025, time.March, 1), Place: "market"}
	require.NoError(t, s.InsertEvent(ctx, event))

	var ids []pantry.BatchID
	for _, cost := range []string{"2", "3"} {
		b := &pantry.Batch{
			IngredientID: ing, EventID: event.ID,
			PurchaseDate: date(2025, time.March, 1),
			Quantity:     dec("10"), Remaining: dec("10"), UnitCost: dec(cost),
			Status: pantry.StatusActive,
		}
		require.NoError(t, s.InsertBatch(ctx, b))
		ids = append(ids, b.ID)
	}

	amt := dec("5")
	_, err := ledger.Discard(ctx, ids[0], &amt) // 5*2 = 10
	require.NoError(t, err)
	_, err = ledger.Discard(ctx, ids[1], &amt) // 5*3 = 15
	require.NoError(t, err)

	e, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, dec("25").Equal(e.TotalWaste))
}

// =============================================================================
// IDEMPOTENT FULL DISCARD
// =============================================================================

func TestSetFullyDiscarded_Idempotent(t *testing.T) {
	// GIVEN: A batch attached to an event
	// WHEN: Fully discarding it twice
	// THEN: Waste is counted exactly once

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "milk")
	event := &pantry.ShoppingEvent{Date: date(2025, time.March, 1)}
	require.NoError(t, s.InsertEvent(ctx, event))

	b := &pantry.Batch{
		IngredientID: ing, EventID: event.ID,
		PurchaseDate: date(2025, time.March, 1),
		Quantity:     dec("10"), Remaining: dec("10"), UnitCost: dec("4"),
		Status: pantry.StatusActive,
	}
	require.NoError(t, s.InsertBatch(ctx, b))

	require.NoError(t, ledger.SetFullyDiscarded(ctx, b.ID))
	require.NoError(t, ledger.SetFullyDiscarded(ctx, b.ID))

	got := getBatch(t, s, b.ID)
	assert.Equal(t, pantry.StatusDiscarded, got.Status)
	assert.True(t, dec("40").Equal(got.DiscardedCost))

	e, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, dec("40").Equal(e.TotalWaste), "second call must not double-count")
}

func TestSetFullyDiscarded_DepletedBatch_StillFlipsStatus(t *testing.T) {
	// GIVEN: A batch whose remaining is already zero (fully consumed)
	// WHEN: Marking it discarded
	// THEN: Status flips with zero waste recorded

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "egg")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "10", "1")

	_, err := ledger.Allocate(ctx, ing, dec("10"))
	require.NoError(t, err)
	require.True(t, getBatch(t, s, id).Remaining.IsZero())
	require.Equal(t, pantry.StatusActive, getBatch(t, s, id).Status)

	require.NoError(t, ledger.SetFullyDiscarded(ctx, id))

	got := getBatch(t, s, id)
	assert.Equal(t, pantry.StatusDiscarded, got.Status)
	assert.True(t, got.DiscardedCost.IsZero())
}

func TestDiscard_ThenAllocate_SkipsDiscardedStock(t *testing.T) {
	// GIVEN: One discarded batch and one active batch
	// WHEN: Allocating
	// THEN: Only the active batch is consumed

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "carrot")
	older := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")
	newer := addBatch(t, s, ing, date(2025, time.March, 5), "10", "3")

	require.NoError(t, ledger.SetFullyDiscarded(ctx, older))

	result, err := ledger.Allocate(ctx, ing, dec("5"))
	require.NoError(t, err)

	assert.True(t, dec("15").Equal(result.Cost), "cost should come from the newer batch only")
	assert.True(t, dec("5").Equal(getBatch(t, s, newer).Remaining))
}
