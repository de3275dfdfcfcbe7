/*
aggregate.go - Read-side reports

PURPOSE:
  Pure computations over the ledger: current asset value, soon-to-expire
  stock with its potential loss, and the daily/monthly money rollups the
  dashboard and calendar feed on. Nothing here mutates anything.

ATTRIBUTION:
  Consumption cost is attributed to the usage date; waste cost is
  attributed to the date of the shopping trip that bought the wasted
  batch. The monthly rollup therefore sums Usage.cost by usage date and
  ShoppingEvent.total_waste by event date.
*/
package pantry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ASSET VALUE
// =============================================================================

// AssetValue returns the cost of goods on hand: the sum over all non-empty
// batches of remaining quantity x unit cost.
func (l *Ledger) AssetValue(ctx context.Context) (decimal.Decimal, error) {
	batches, err := l.store.ActiveBatches(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range batches {
		total = total.Add(batches[i].Value())
	}
	return total, nil
}

// =============================================================================
// EXPIRING STOCK
// =============================================================================

// ExpiringBatch annotates a still-stocked batch whose expiry falls inside
// the report window.
type ExpiringBatch struct {
	BatchID       BatchID
	Ingredient    string
	Unit          StandardUnit
	Remaining     decimal.Decimal
	DaysLeft      int
	PotentialLoss decimal.Decimal
}

// ExpiringSoon lists active batches expiring within windowDays of today,
// soonest first, each with the money lost if it spoils.
func (l *Ledger) ExpiringSoon(ctx context.Context, windowDays int) ([]ExpiringBatch, error) {
	return l.ExpiringSoonAsOf(ctx, Today(), windowDays)
}

// ExpiringSoonAsOf is ExpiringSoon with an explicit "today" for testing.
func (l *Ledger) ExpiringSoonAsOf(ctx context.Context, today Date, windowDays int) ([]ExpiringBatch, error) {
	batches, err := l.store.ActiveBatches(ctx)
	if err != nil {
		return nil, err
	}

	var out []ExpiringBatch
	for i := range batches {
		b := &batches[i]
		if b.ExpiryDate == nil {
			continue
		}
		left := today.DaysUntil(*b.ExpiryDate)
		if left < 0 || left > windowDays {
			continue
		}
		ing, err := l.store.GetIngredient(ctx, b.IngredientID)
		if err != nil {
			return nil, err
		}
		name := ""
		unit := StandardUnit("")
		if ing != nil {
			name = ing.Name
			unit = ing.StandardUnit
		}
		out = append(out, ExpiringBatch{
			BatchID:       b.ID,
			Ingredient:    name,
			Unit:          unit,
			Remaining:     b.Remaining,
			DaysLeft:      left,
			PotentialLoss: b.Value(),
		})
	}

	// Soonest expiry first; FIFO tie-break keeps the order stable.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && lessExpiring(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func lessExpiring(a, b ExpiringBatch) bool {
	if a.DaysLeft != b.DaysLeft {
		return a.DaysLeft < b.DaysLeft
	}
	return a.BatchID < b.BatchID
}

// =============================================================================
// DAILY / MONTHLY ROLLUPS
// =============================================================================

// DayStat is one calendar day's money movement.
type DayStat struct {
	Usage decimal.Decimal
	Waste decimal.Decimal
	Total decimal.Decimal
}

// MonthlyStats returns per-day usage/waste/total for the month, keyed by
// YYYY-MM-DD. Days with no activity are absent.
func (l *Ledger) MonthlyStats(ctx context.Context, year int, month time.Month) (map[string]DayStat, error) {
	from, to := MonthRange(year, month)

	usages, err := l.store.UsagesInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	events, err := l.store.EventsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]DayStat)
	for _, u := range usages {
		key := u.Date.String()
		s := stats[key]
		s.Usage = s.Usage.Add(u.Cost)
		s.Total = s.Total.Add(u.Cost)
		stats[key] = s
	}
	for _, e := range events {
		if !e.TotalWaste.IsPositive() {
			continue
		}
		key := e.Date.String()
		s := stats[key]
		s.Waste = s.Waste.Add(e.TotalWaste)
		s.Total = s.Total.Add(e.TotalWaste)
		stats[key] = s
	}
	return stats, nil
}

// MonthSummary is the dashboard's month-level rollup.
type MonthSummary struct {
	Shopping decimal.Decimal // money spent on trips this month
	Waste    decimal.Decimal // waste cost attributed to this month's trips
	Usage    decimal.Decimal // consumption cost this month
}

// MonthlySummary sums trip spending, waste, and consumption for one month.
func (l *Ledger) MonthlySummary(ctx context.Context, year int, month time.Month) (MonthSummary, error) {
	from, to := MonthRange(year, month)

	var sum MonthSummary
	events, err := l.store.EventsInRange(ctx, from, to)
	if err != nil {
		return sum, err
	}
	for _, e := range events {
		sum.Shopping = sum.Shopping.Add(e.TotalCost)
		sum.Waste = sum.Waste.Add(e.TotalWaste)
	}

	usages, err := l.store.UsagesInRange(ctx, from, to)
	if err != nil {
		return sum, err
	}
	for _, u := range usages {
		sum.Usage = sum.Usage.Add(u.Cost)
	}
	return sum, nil
}

// DailyCost sums consumption cost for one day.
func (l *Ledger) DailyCost(ctx context.Context, day Date) (decimal.Decimal, error) {
	usages, err := l.store.UsagesOn(ctx, day)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, u := range usages {
		total = total.Add(u.Cost)
	}
	return total, nil
}

// CumulativeWaste sums waste cost across all shopping events, all time.
func (l *Ledger) CumulativeWaste(ctx context.Context) (decimal.Decimal, error) {
	events, err := l.store.ListEvents(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range events {
		total = total.Add(e.TotalWaste)
	}
	return total, nil
}

// =============================================================================
// DAILY DETAIL
// =============================================================================

// MealGroup is one meal's usages on a given day.
type MealGroup struct {
	MealType string
	Total    decimal.Decimal
	Items    []Usage
}

// DailyDetail groups a day's usages by meal type, in first-seen order.
func (l *Ledger) DailyDetail(ctx context.Context, day Date) ([]MealGroup, error) {
	usages, err := l.store.UsagesOn(ctx, day)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var groups []MealGroup
	for _, u := range usages {
		i, ok := index[u.MealType]
		if !ok {
			i = len(groups)
			index[u.MealType] = i
			groups = append(groups, MealGroup{MealType: u.MealType})
		}
		groups[i].Total = groups[i].Total.Add(u.Cost)
		groups[i].Items = append(groups[i].Items, u)
	}
	return groups, nil
}
