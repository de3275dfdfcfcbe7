package pantry

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UNIT CONVERSION - Human units to the ingredient's standard unit
// =============================================================================

// Converter turns a human-entered amount ("1.5 tablespoons") into standard
// units using the unit matrix. The ledger consumes standard units only;
// conversion happens at the boundary, before RecordUsage is called.
type Converter struct {
	store Store
}

func NewConverter(store Store) *Converter {
	return &Converter{store: store}
}

// ToStandard converts amount of the named unit into standard units and
// returns the converted quantity plus a display label preserving the
// original input. An unknown unit name passes the amount through unchanged,
// treating it as already-standard.
func (c *Converter) ToStandard(ctx context.Context, amount decimal.Decimal, unitName string) (decimal.Decimal, string, error) {
	label := fmt.Sprintf("%s %s", amount.String(), unitName)

	u, err := c.store.GetUnit(ctx, unitName)
	if err != nil {
		return decimal.Zero, "", err
	}
	if u == nil {
		return amount, label, nil
	}
	return amount.Mul(u.RatioToStandard), label, nil
}

// SeedDefaultUnits installs the stock household units when the matrix is
// empty. Safe to call on every startup.
func SeedDefaultUnits(ctx context.Context, store Store) error {
	existing, err := store.ListUnits(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := []Unit{
		{Name: "큰술", RatioToStandard: decimal.NewFromInt(15)},  // tablespoon, 15 g/ml
		{Name: "컵", RatioToStandard: decimal.NewFromInt(200)},  // cup, 200 g/ml
		{Name: "작은술", RatioToStandard: decimal.NewFromInt(5)}, // teaspoon, 5 g/ml
	}
	for _, u := range defaults {
		if err := store.SaveUnit(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
