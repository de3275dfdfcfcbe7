package pantry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/pantry-engine/pantry"
)

func TestParseDate_RoundTrips(t *testing.T) {
	d, err := pantry.ParseDate("2025-03-09")
	require.NoError(t, err)

	assert.Equal(t, "2025-03-09", d.String())
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 9, d.Day())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := pantry.ParseDate("03/09/2025")
	assert.Error(t, err)
}

func TestDate_Comparisons(t *testing.T) {
	a := pantry.NewDate(2025, time.March, 9)
	b := pantry.NewDate(2025, time.March, 10)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Equal(pantry.NewDate(2025, time.March, 9)))
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, b.AfterOrEqual(a))
}

func TestDate_DaysUntil(t *testing.T) {
	a := pantry.NewDate(2025, time.March, 9)

	assert.Equal(t, 3, a.DaysUntil(pantry.NewDate(2025, time.March, 12)))
	assert.Equal(t, -2, a.DaysUntil(pantry.NewDate(2025, time.March, 7)))
	assert.Equal(t, 0, a.DaysUntil(a))
}

func TestMonthRange_HalfOpen(t *testing.T) {
	from, to := pantry.MonthRange(2025, time.February)

	assert.Equal(t, "2025-02-01", from.String())
	assert.Equal(t, "2025-03-01", to.String())

	// December rolls into the next year.
	from, to = pantry.MonthRange(2025, time.December)
	assert.Equal(t, "2025-12-01", from.String())
	assert.Equal(t, "2026-01-01", to.String())
}

func TestFIFOBefore_Ordering(t *testing.T) {
	day1 := pantry.NewDate(2025, time.March, 1)
	day2 := pantry.NewDate(2025, time.March, 2)
	expEarly := pantry.NewDate(2025, time.March, 5)
	expLate := pantry.NewDate(2025, time.March, 9)

	older := &pantry.Batch{ID: 1, PurchaseDate: day1}
	newer := &pantry.Batch{ID: 2, PurchaseDate: day2}
	assert.True(t, pantry.FIFOBefore(older, newer), "earlier purchase first")

	soon := &pantry.Batch{ID: 3, PurchaseDate: day1, ExpiryDate: &expEarly}
	later := &pantry.Batch{ID: 4, PurchaseDate: day1, ExpiryDate: &expLate}
	noExp := &pantry.Batch{ID: 5, PurchaseDate: day1}
	assert.True(t, pantry.FIFOBefore(soon, later), "sooner expiry first on a date tie")
	assert.True(t, pantry.FIFOBefore(later, noExp), "known expiry before unknown")

	twinA := &pantry.Batch{ID: 6, PurchaseDate: day1}
	twinB := &pantry.Batch{ID: 7, PurchaseDate: day1}
	assert.True(t, pantry.FIFOBefore(twinA, twinB), "id breaks the final tie")
	assert.False(t, pantry.FIFOBefore(twinB, twinA))
}
