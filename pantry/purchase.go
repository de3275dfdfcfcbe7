/*
purchase.go - Recording purchases

PURPOSE:
  Entry side of the ledger. A shopping trip creates one ShoppingEvent and
  its batches atomically; a standalone batch can also be entered without a
  trip. Unit cost is derived once at entry (line price / quantity) and is
  immutable afterwards.

DISCOUNT PRORATION:
  When the receipt total differs from the sum of line prices (coupons,
  card discounts), the caller supplies the amount actually paid and every
  line price is scaled by paid/rawTotal before unit costs are derived, so
  batch costs add up to what left the wallet.
*/
package pantry

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRIP ENTRY
// =============================================================================

// TripItem is one receipt line: a quantity of an ingredient at a total
// line price. Ingredients are found by name and created on first sight.
type TripItem struct {
	Name       string
	Category   string
	Quantity   decimal.Decimal
	Unit       StandardUnit
	LinePrice  decimal.Decimal
	ExpiryDate *Date
}

// TripInput describes one shopping trip.
type TripInput struct {
	Date  Date
	Place string
	Items []TripItem

	// TotalPaid, when non-nil, prorates every line price so the trip cost
	// matches the amount actually paid.
	TotalPaid *decimal.Decimal
}

// RecordTrip creates the shopping event and all of its batches in one
// transaction. Returns the persisted event.
func (l *Ledger) RecordTrip(ctx context.Context, in TripInput) (*ShoppingEvent, error) {
	var event *ShoppingEvent
	err := l.store.WithTx(ctx, func(s Store) error {
		for _, item := range in.Items {
			if item.Quantity.IsNegative() || item.LinePrice.IsNegative() {
				return &InvalidAmountError{Op: "record trip", Requested: item.Quantity, Reason: "quantity and price must be >= 0"}
			}
		}

		ratio := discountRatio(in)

		e := &ShoppingEvent{
			Date:       in.Date,
			Place:      in.Place,
			TotalCost:  decimal.Zero,
			TotalWaste: decimal.Zero,
		}
		if err := s.InsertEvent(ctx, e); err != nil {
			return err
		}

		tripCost := decimal.Zero
		for _, item := range in.Items {
			ing, err := findOrCreateIngredient(ctx, s, item)
			if err != nil {
				return err
			}

			linePrice := item.LinePrice.Mul(ratio)
			unitCost := decimal.Zero
			if item.Quantity.IsPositive() {
				unitCost = linePrice.Div(item.Quantity)
			}
			tripCost = tripCost.Add(linePrice)

			b := &Batch{
				IngredientID:  ing.ID,
				EventID:       e.ID,
				PurchaseDate:  in.Date,
				ExpiryDate:    item.ExpiryDate,
				Quantity:      item.Quantity,
				Remaining:     item.Quantity,
				UnitCost:      unitCost,
				DiscardedQty:  decimal.Zero,
				DiscardedCost: decimal.Zero,
				Status:        StatusActive,
			}
			if err := s.InsertBatch(ctx, b); err != nil {
				return err
			}
		}

		e.TotalCost = tripCost
		if err := s.UpdateEvent(ctx, e); err != nil {
			return err
		}

		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func discountRatio(in TripInput) decimal.Decimal {
	ratio := decimal.NewFromInt(1)
	if in.TotalPaid == nil {
		return ratio
	}
	raw := decimal.Zero
	for _, item := range in.Items {
		raw = raw.Add(item.LinePrice)
	}
	if raw.IsPositive() {
		ratio = in.TotalPaid.Div(raw)
	}
	return ratio
}

func findOrCreateIngredient(ctx context.Context, s Store, item TripItem) (*Ingredient, error) {
	ing, err := s.FindIngredientByName(ctx, item.Name)
	if err != nil {
		return nil, err
	}
	if ing != nil {
		return ing, nil
	}

	category := item.Category
	if category == "" {
		category = "general"
	}
	unit := item.Unit
	if unit == "" {
		unit = UnitGram
	}
	ing = &Ingredient{
		Name:         item.Name,
		Category:     category,
		Mode:         ModePrecision,
		StandardUnit: unit,
	}
	if err := s.InsertIngredient(ctx, ing); err != nil {
		return nil, err
	}
	return ing, nil
}

// =============================================================================
// SINGLE BATCH ENTRY
// =============================================================================

// BatchInput describes a batch entered outside a shopping trip, or appended
// to an existing event.
type BatchInput struct {
	IngredientID IngredientID
	PurchaseDate Date
	ExpiryDate   *Date
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	EventID      EventID // 0 = standalone
}

// RecordBatch persists one purchase batch and returns its id.
func (l *Ledger) RecordBatch(ctx context.Context, in BatchInput) (BatchID, error) {
	var id BatchID
	err := l.store.WithTx(ctx, func(s Store) error {
		if in.Quantity.IsNegative() || in.UnitCost.IsNegative() {
			return &InvalidAmountError{Op: "record batch", Requested: in.Quantity, Reason: "quantity and unit cost must be >= 0"}
		}

		ing, err := s.GetIngredient(ctx, in.IngredientID)
		if err != nil {
			return err
		}
		if ing == nil {
			return ErrIngredientNotFound
		}

		if in.EventID != 0 {
			e, err := s.GetEvent(ctx, in.EventID)
			if err != nil {
				return err
			}
			if e == nil {
				return ErrEventNotFound
			}
		}

		b := &Batch{
			IngredientID:  in.IngredientID,
			EventID:       in.EventID,
			PurchaseDate:  in.PurchaseDate,
			ExpiryDate:    in.ExpiryDate,
			Quantity:      in.Quantity,
			Remaining:     in.Quantity,
			UnitCost:      in.UnitCost,
			DiscardedQty:  decimal.Zero,
			DiscardedCost: decimal.Zero,
			Status:        StatusActive,
		}
		if err := s.InsertBatch(ctx, b); err != nil {
			return err
		}
		id = b.ID
		return nil
	})
	return id, err
}
