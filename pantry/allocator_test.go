package pantry_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/pantry-engine/pantry"
	"github.com/hearth/pantry-engine/pantry/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*pantry.Ledger, pantry.TxStore) {
	t.Helper()
	s := store.NewTxMemory()
	return pantry.NewLedger(s), s
}

func date(year int, month time.Month, day int) pantry.Date {
	return pantry.NewDate(year, month, day)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func addIngredient(t *testing.T, s pantry.Store, name string) pantry.IngredientID {
	t.Helper()
	ing := &pantry.Ingredient{
		Name:         name,
		Category:     "test",
		Mode:         pantry.ModePrecision,
		StandardUnit: pantry.UnitGram,
	}
	require.NoError(t, s.InsertIngredient(context.Background(), ing))
	return ing.ID
}

func addBatch(t *testing.T, s pantry.Store, ing pantry.IngredientID, purchased pantry.Date, qty, unitCost string) pantry.BatchID {
	t.Helper()
	q := dec(qty)
	b := &pantry.Batch{
		IngredientID: ing,
		PurchaseDate: purchased,
		Quantity:     q,
		Remaining:    q,
		UnitCost:     dec(unitCost),
		Status:       pantry.StatusActive,
	}
	require.NoError(t, s.InsertBatch(context.Background(), b))
	return b.ID
}

func getBatch(t *testing.T, s pantry.Store, id pantry.BatchID) *pantry.Batch {
	t.Helper()
	b, err := s.GetBatch(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

// =============================================================================
// FIFO COST ALLOCATION
// =============================================================================

func TestAllocate_SpansBatchesOldestFirst(t *testing.T) {
	// GIVEN: 10 units at cost 2 (older) and 10 units at cost 3 (newer)
	// WHEN: Allocating 15 units
	// THEN: Cost is 10*2 + 5*3 = 35; older batch drained, newer at 5

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "pork")
	older := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")
	newer := addBatch(t, s, ing, date(2025, time.March, 5), "10", "3")

	result, err := ledger.Allocate(ctx, ing, dec("15"))
	require.NoError(t, err)

	assert.True(t, dec("35").Equal(result.Cost), "cost should be 35, got %s", result.Cost)
	assert.False(t, result.Short())
	assert.True(t, getBatch(t, s, older).Remaining.IsZero())
	assert.True(t, dec("5").Equal(getBatch(t, s, newer).Remaining))
}

func TestAllocate_ConservesQuantity(t *testing.T) {
	// GIVEN: Stock spread over three batches
	// WHEN: Allocating any amount
	// THEN: Sum of takes == allocated amount, and remainings drop by the same

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "rice")
	addBatch(t, s, ing, date(2025, time.January, 1), "3.5", "10")
	addBatch(t, s, ing, date(2025, time.February, 1), "2.25", "12")
	addBatch(t, s, ing, date(2025, time.March, 1), "8", "9")

	requested := dec("7.75")
	result, err := ledger.Allocate(ctx, ing, requested)
	require.NoError(t, err)

	taken := decimal.Zero
	for _, line := range result.Lines {
		taken = taken.Add(line.Quantity)
	}
	assert.True(t, requested.Equal(taken), "takes should sum to the request")

	remaining := decimal.Zero
	batches, err := s.BatchesForAllocation(ctx, ing)
	require.NoError(t, err)
	for _, b := range batches {
		remaining = remaining.Add(b.Remaining)
	}
	assert.True(t, dec("13.75").Sub(requested).Equal(remaining))
}

func TestAllocate_ExactDrain_NoResidue(t *testing.T) {
	// GIVEN: One batch of 10
	// WHEN: Allocating exactly 10
	// THEN: Remaining is exactly zero, no shortfall

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "flour")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "10", "1.5")

	result, err := ledger.Allocate(ctx, ing, dec("10"))
	require.NoError(t, err)

	assert.True(t, dec("15").Equal(result.Cost))
	assert.True(t, getBatch(t, s, id).Remaining.IsZero())
	assert.True(t, getBatch(t, s, id).Depleted())
}

func TestAllocate_Shortfall_IsCostFree(t *testing.T) {
	// GIVEN: Only 4 units in stock
	// WHEN: Allocating 10
	// THEN: Cost covers the 4 found; the missing 6 is reported, not charged

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "butter")
	addBatch(t, s, ing, date(2025, time.March, 1), "4", "5")

	result, err := ledger.Allocate(ctx, ing, dec("10"))
	require.NoError(t, err)

	assert.True(t, dec("20").Equal(result.Cost))
	assert.True(t, result.Short())
	assert.True(t, dec("6").Equal(result.Shortfall))
}

func TestAllocate_ExpiryBreaksDateTie(t *testing.T) {
	// GIVEN: Two batches bought the same day, one expiring sooner, one without expiry
	// WHEN: Allocating from them
	// THEN: Sooner expiry goes first; no-expiry goes last

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "milk")
	day := date(2025, time.March, 1)

	noExpiry := addBatch(t, s, ing, day, "10", "1")
	expSoon := date(2025, time.March, 4)
	soon := &pantry.Batch{
		IngredientID: ing, PurchaseDate: day, ExpiryDate: &expSoon,
		Quantity: dec("10"), Remaining: dec("10"), UnitCost: dec("2"),
		Status: pantry.StatusActive,
	}
	require.NoError(t, s.InsertBatch(ctx, soon))

	result, err := ledger.Allocate(ctx, ing, dec("10"))
	require.NoError(t, err)

	// All 10 from the expiring batch at cost 2.
	assert.True(t, dec("20").Equal(result.Cost))
	assert.True(t, getBatch(t, s, soon.ID).Remaining.IsZero())
	assert.True(t, dec("10").Equal(getBatch(t, s, noExpiry).Remaining))
}

func TestAllocate_NegativeAmount_Rejected(t *testing.T) {
	ledger, s := newTestLedger(t)
	ing := addIngredient(t, s, "salt")

	_, err := ledger.Allocate(context.Background(), ing, dec("-1"))

	assert.ErrorIs(t, err, pantry.ErrInvalidAmount)
	var amtErr *pantry.InvalidAmountError
	assert.ErrorAs(t, err, &amtErr)
}

func TestAllocate_UnknownIngredient_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Allocate(context.Background(), pantry.IngredientID(999), dec("1"))

	assert.ErrorIs(t, err, pantry.ErrIngredientNotFound)
}

func TestAllocate_ZeroAmount_IsNoOp(t *testing.T) {
	ledger, s := newTestLedger(t)
	ing := addIngredient(t, s, "pepper")
	id := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")

	result, err := ledger.Allocate(context.Background(), ing, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, result.Cost.IsZero())
	assert.Empty(t, result.Lines)
	assert.True(t, dec("10").Equal(getBatch(t, s, id).Remaining))
}

// =============================================================================
// USAGE RECORDING
// =============================================================================

func TestRecordUsage_PersistsUsageAndTrace(t *testing.T) {
	// GIVEN: Stock in two batches
	// WHEN: Recording a usage spanning both
	// THEN: Usage row carries the FIFO cost and the trace names both batches

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "pork")
	b1 := addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")
	b2 := addBatch(t, s, ing, date(2025, time.March, 5), "10", "3")

	usage, shortfall, err := ledger.RecordUsage(ctx, pantry.UsageInput{
		IngredientID: ing,
		Date:         date(2025, time.March, 10),
		MealType:     "dinner",
		InputLabel:   "15 g",
		Quantity:     dec("15"),
	})
	require.NoError(t, err)
	require.NotNil(t, usage)

	assert.True(t, shortfall.IsZero())
	assert.True(t, dec("35").Equal(usage.Cost))

	lines, err := s.AllocationsForUsage(ctx, usage.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, b1, lines[0].BatchID)
	assert.True(t, dec("10").Equal(lines[0].Quantity))
	assert.Equal(t, b2, lines[1].BatchID)
	assert.True(t, dec("5").Equal(lines[1].Quantity))
}

func TestRecordUsage_FailedAllocation_RollsBack(t *testing.T) {
	// GIVEN: A usage against an unknown ingredient
	// WHEN: Recording fails
	// THEN: No usage row exists

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	_, _, err := ledger.RecordUsage(ctx, pantry.UsageInput{
		IngredientID: pantry.IngredientID(404),
		Date:         date(2025, time.March, 10),
		Quantity:     dec("5"),
	})
	assert.ErrorIs(t, err, pantry.ErrIngredientNotFound)

	usages, err := s.UsagesInRange(ctx, date(2025, time.March, 1), date(2025, time.April, 1))
	require.NoError(t, err)
	assert.Empty(t, usages)
}

func TestNextUnitCost_OldestBatchPrice(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "onion")
	assert.True(t, mustNextCost(t, ledger, ctx, ing).IsZero(), "empty stock costs nothing")

	addBatch(t, s, ing, date(2025, time.March, 5), "10", "3")
	addBatch(t, s, ing, date(2025, time.March, 1), "10", "2")

	assert.True(t, dec("2").Equal(mustNextCost(t, ledger, ctx, ing)), "oldest batch sets the next price")
}

func mustNextCost(t *testing.T, l *pantry.Ledger, ctx context.Context, id pantry.IngredientID) decimal.Decimal {
	t.Helper()
	c, err := l.NextUnitCost(ctx, id)
	require.NoError(t, err)
	return c
}
