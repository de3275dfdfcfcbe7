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
// EXACT REVERSAL (allocation trace)
// =============================================================================

func TestReverseUsage_RestoresExactBatches(t *testing.T) {
	// GIVEN: A usage that drew 10 from batch A and 5 from batch B
	// WHEN: Reversing it
	// THEN: Both batches are back at full quantity and the usage is gone

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "pork")
	a := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")
	b := addBatch(t, s, ing, date(2025, time.March, 5), "10", "3")

	usage, _, err := ledger.RecordUsage(ctx, pantry.UsageInput{
		IngredientID: ing, Date: date(2025, time.March, 10), Quantity: dec("15"),
	})
	require.NoError(t, err)

	require.NoError(t, ledger.ReverseUsage(ctx, usage.ID))

	assert.True(t, dec("10").Equal(getBatch(t, s, a).Remaining))
	assert.True(t, dec("10").Equal(getBatch(t, s, b).Remaining))

	gone, err := s.GetUsage(ctx, usage.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	lines, err := s.AllocationsForUsage(ctx, usage.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReverseUsage_RevivesDiscardedBatch(t *testing.T) {
	// GIVEN: A usage's source batch was later fully discarded
	// WHEN: Reversing the usage
	// THEN: The batch gets its quantity back and returns to active

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "fish")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "10", "5")

	usage, _, err := ledger.RecordUsage(ctx, pantry.UsageInput{
		IngredientID: ing, Date: date(2025, time.March, 2), Quantity: dec("4"),
	})
	require.NoError(t, err)

	require.NoError(t, ledger.SetFullyDiscarded(ctx, id))
	require.Equal(t, pantry.StatusDiscarded, getBatch(t, s, id).Status)

	require.NoError(t, ledger.ReverseUsage(ctx, usage.ID))

	got := getBatch(t, s, id)
	assert.Equal(t, pantry.StatusActive, got.Status)
	assert.True(t, dec("4").Equal(got.Remaining))
}

func TestReverseUsage_Twice_NotFound(t *testing.T) {
	// GIVEN: A usage already reversed
	// WHEN: Reversing it again
	// THEN: ErrUsageNotFound and no stock change

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "beef")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")

	usage, _, err := ledger.RecordUsage(ctx, pantry.UsageInput{
		IngredientID: ing, Date: date(2025, time.March, 2), Quantity: dec("3"),
	})
	require.NoError(t, err)

	require.NoError(t, ledger.ReverseUsage(ctx, usage.ID))
	err = ledger.ReverseUsage(ctx, usage.ID)

	assert.ErrorIs(t, err, pantry.ErrUsageNotFound)
	assert.True(t, dec("10").Equal(getBatch(t, s, id).Remaining))
}

// =============================================================================
// HEURISTIC REVERSAL (no trace)
// =============================================================================

// insertTracelessUsage writes a usage row with no allocation trace, the way
// data imported from older records looks.
func insertTracelessUsage(t *testing.T, s pantry.Store, ing pantry.IngredientID, qty string) pantry.UsageID {
	t.Helper()
	u := &pantry.Usage{
		IngredientID: ing,
		Date:         date(2025, time.March, 10),
		Quantity:     dec(qty),
		Cost:         dec("0"),
	}
	require.NoError(t, s.InsertUsage(context.Background(), u))
	return u.ID
}

func TestReverseUsage_NoTrace_FillsOldestFirst(t *testing.T) {
	// GIVEN: Two partially-depleted batches and a traceless usage of 13
	// WHEN: Reversing
	// THEN: The older batch fills to capacity first, the newer takes the rest

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "rice")
	older := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")
	newer := addBatch(t, s, ing, date(2025, time.March, 5), "10", "3")

	// Drain 13 across both: older empty, newer at 7. Drop the trace to
	// force the heuristic.
	usage, _, err := ledger.RecordUsage(ctx, pantry.UsageInput{
		IngredientID: ing, Date: date(2025, time.March, 6), Quantity: dec("13"),
	})
	require.NoError(t, err)
	require.NoError(t, s.DeleteAllocationsForUsage(ctx, usage.ID))

	require.NoError(t, ledger.ReverseUsage(ctx, usage.ID))

	// Older batch has 10 of space, newer 3; 13 restores both to full.
	assert.True(t, dec("10").Equal(getBatch(t, s, older).Remaining))
	assert.True(t, dec("10").Equal(getBatch(t, s, newer).Remaining))
}

func TestReverseUsage_NoTrace_LeftoverGoesToLatestBatch(t *testing.T) {
	// GIVEN: A traceless usage larger than the batches' combined headroom
	// WHEN: Reversing
	// THEN: The leftover lands on the most recent batch

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "noodles")
	older := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")
	newer := addBatch(t, s, ing, date(2025, time.March, 5), "10", "3")

	// 5 units of headroom in total.
	_, err := ledger.Allocate(ctx, ing, dec("5"))
	require.NoError(t, err)

	id := insertTracelessUsage(t, s, ing, "9")
	require.NoError(t, ledger.ReverseUsage(ctx, id))

	// Older refills its 5, the extra 4 piles onto the latest batch.
	assert.True(t, dec("10").Equal(getBatch(t, s, older).Remaining))
	assert.True(t, dec("14").Equal(getBatch(t, s, newer).Remaining))
}

func TestReverseUsage_NoBatchAtAll_InconsistentState(t *testing.T) {
	// GIVEN: A traceless usage for an ingredient with no batches
	// WHEN: Reversing
	// THEN: Fails loudly; the usage record survives

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "ghost")
	id := insertTracelessUsage(t, s, ing, "5")

	err := ledger.ReverseUsage(ctx, id)

	assert.ErrorIs(t, err, pantry.ErrInconsistentState)
	var restoreErr *pantry.RestoreError
	assert.ErrorAs(t, err, &restoreErr)
	assert.True(t, dec("5").Equal(restoreErr.Unplaced))

	still, err := s.GetUsage(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, still, "failed reversal must not delete the usage")
}

func TestReverseUsage_UnknownID_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.ReverseUsage(context.Background(), pantry.UsageID(404))

	assert.ErrorIs(t, err, pantry.ErrUsageNotFound)
}
