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
// SHOPPING TRIPS
// =============================================================================

func TestRecordTrip_CreatesEventAndBatches(t *testing.T) {
	// GIVEN: A two-line receipt
	// WHEN: Recording the trip
	// THEN: One event, two batches with per-unit costs, trip total on the event

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	event, err := ledger.RecordTrip(ctx, pantry.TripInput{
		Date:  date(2025, time.March, 1),
		Place: "market",
		Items: []pantry.TripItem{
			{Name: "pork", Quantity: dec("500"), LinePrice: dec("10000")},
			{Name: "rice", Quantity: dec("2000"), LinePrice: dec("6000")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.True(t, dec("16000").Equal(event.TotalCost))

	batches, err := s.BatchesByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.True(t, dec("20").Equal(batches[0].UnitCost), "10000/500")
	assert.True(t, dec("3").Equal(batches[1].UnitCost), "6000/2000")
	assert.True(t, batches[0].Quantity.Equal(batches[0].Remaining))
}

func TestRecordTrip_ReusesIngredientByName(t *testing.T) {
	// GIVEN: An ingredient that already exists
	// WHEN: A trip buys it again
	// THEN: The batch points at the existing ingredient; no duplicate created

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	existing := addIngredient(t, s, "pork")

	event, err := ledger.RecordTrip(ctx, pantry.TripInput{
		Date:  date(2025, time.March, 1),
		Items: []pantry.TripItem{{Name: "pork", Quantity: dec("300"), LinePrice: dec("9000")}},
	})
	require.NoError(t, err)

	batches, err := s.BatchesByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, existing, batches[0].IngredientID)

	ingredients, err := s.ListIngredients(ctx)
	require.NoError(t, err)
	assert.Len(t, ingredients, 1)
}

func TestRecordTrip_TotalPaid_ProratesLinePrices(t *testing.T) {
	// GIVEN: Lines totalling 10000 but only 8000 actually paid
	// WHEN: Recording with total_paid
	// THEN: Every line is scaled by 0.8 and the event carries 8000

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	paid := dec("8000")
	event, err := ledger.RecordTrip(ctx, pantry.TripInput{
		Date:      date(2025, time.March, 1),
		TotalPaid: &paid,
		Items: []pantry.TripItem{
			{Name: "a", Quantity: dec("100"), LinePrice: dec("4000")},
			{Name: "b", Quantity: dec("100"), LinePrice: dec("6000")},
		},
	})
	require.NoError(t, err)

	assert.True(t, dec("8000").Equal(event.TotalCost))

	batches, err := s.BatchesByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.True(t, dec("32").Equal(batches[0].UnitCost), "4000*0.8/100")
	assert.True(t, dec("48").Equal(batches[1].UnitCost), "6000*0.8/100")
}

func TestRecordTrip_NegativePrice_RejectedAtomically(t *testing.T) {
	// GIVEN: A receipt where the second line is invalid
	// WHEN: Recording
	// THEN: Nothing is persisted, not even the first line

	ledger, s := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordTrip(ctx, pantry.TripInput{
		Date: date(2025, time.March, 1),
		Items: []pantry.TripItem{
			{Name: "ok", Quantity: dec("100"), LinePrice: dec("1000")},
			{Name: "bad", Quantity: dec("100"), LinePrice: dec("-5")},
		},
	})
	assert.ErrorIs(t, err, pantry.ErrInvalidAmount)

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	ingredients, err := s.ListIngredients(ctx)
	require.NoError(t, err)
	assert.Empty(t, ingredients)
}

// =============================================================================
// SINGLE BATCH ENTRY
// =============================================================================

func TestRecordBatch_Standalone(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	ing := addIngredient(t, s, "garlic")
	exp := date(2025, time.April, 1)

	id, err := ledger.RecordBatch(ctx, pantry.BatchInput{
		IngredientID: ing,
		PurchaseDate: date(2025, time.March, 1),
		ExpiryDate:   &exp,
		Quantity:     dec("200"),
		UnitCost:     dec("15"),
	})
	require.NoError(t, err)

	b := getBatch(t, s, id)
	assert.Equal(t, pantry.EventID(0), b.EventID)
	assert.True(t, dec("200").Equal(b.Remaining))
	require.NotNil(t, b.ExpiryDate)
	assert.True(t, b.ExpiryDate.Equal(exp))
}

func TestRecordBatch_UnknownIngredient_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.RecordBatch(context.Background(), pantry.BatchInput{
		IngredientID: pantry.IngredientID(404),
		PurchaseDate: date(2025, time.March, 1),
		Quantity:     dec("1"),
		UnitCost:     dec("1"),
	})

	assert.ErrorIs(t, err, pantry.ErrIngredientNotFound)
}

func TestRecordBatch_UnknownEvent_NotFound(t *testing.T) {
	ledger, s := newTestLedger(t)
	ing := addIngredient(t, s, "ginger")

	_, err := ledger.RecordBatch(context.Background(), pantry.BatchInput{
		IngredientID: ing,
		PurchaseDate: date(2025, time.March, 1),
		Quantity:     dec("1"),
		UnitCost:     dec("1"),
		EventID:      pantry.EventID(404),
	})

	assert.ErrorIs(t, err, pantry.ErrEventNotFound)
}
