/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND QUANTITY ENCODING:
  Decimals are encoded as JSON strings ("1234.5") so clients never see
  float rounding. Dates are YYYY-MM-DD strings.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/hearth/pantry-engine/pantry"
)

// =============================================================================
// INGREDIENTS
// =============================================================================

// IngredientDTO represents an ingredient in API responses.
type IngredientDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Mode         string `json:"mode"`
	StandardUnit string `json:"standard_unit"`
}

// CreateIngredientRequest is the request to register an ingredient.
type CreateIngredientRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Mode         string `json:"mode"`
	StandardUnit string `json:"standard_unit"`
}

// =============================================================================
// SHOPPING TRIPS AND BATCHES
// =============================================================================

// TripItemRequest is one receipt line in a trip submission.
type TripItemRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	Quantity   string `json:"quantity"`
	Unit       string `json:"unit,omitempty"`
	LinePrice  string `json:"line_price"`
	ExpiryDate string `json:"expiry_date,omitempty"`
}

// CreateTripRequest is the request to record a shopping trip.
type CreateTripRequest struct {
	Date      string            `json:"date"`
	Place     string            `json:"place"`
	Items     []TripItemRequest `json:"items"`
	TotalPaid string            `json:"total_paid,omitempty"`
}

// EventDTO represents a shopping event in API responses.
type EventDTO struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Place      string `json:"place"`
	TotalCost  string `json:"total_cost"`
	TotalWaste string `json:"total_waste"`
}

// EventDetailDTO is an event plus the batches bought on it.
type EventDetailDTO struct {
	EventDTO
	Batches []BatchDTO `json:"batches"`
}

// BatchDTO represents a purchase batch in API responses.
type BatchDTO struct {
	ID            int64  `json:"id"`
	IngredientID  int64  `json:"ingredient_id"`
	Ingredient    string `json:"ingredient,omitempty"`
	EventID       int64  `json:"event_id,omitempty"`
	PurchaseDate  string `json:"purchase_date"`
	ExpiryDate    string `json:"expiry_date,omitempty"`
	Quantity      string `json:"quantity"`
	Remaining     string `json:"remaining"`
	UnitCost      string `json:"unit_cost"`
	DiscardedQty  string `json:"discarded_quantity"`
	DiscardedCost string `json:"discarded_cost"`
	Status        string `json:"status"`
	Version       int64  `json:"version"`
}

// CreateBatchRequest records a single batch outside a trip.
type CreateBatchRequest struct {
	IngredientID int64  `json:"ingredient_id"`
	PurchaseDate string `json:"purchase_date"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
	Quantity     string `json:"quantity"`
	UnitCost     string `json:"unit_cost"`
	EventID      int64  `json:"event_id,omitempty"`
}

// DiscardRequest throws away part or all of a batch. Empty amount means
// everything that remains.
type DiscardRequest struct {
	Amount string `json:"amount,omitempty"`
}

// SetStatusRequest flips a batch's lifecycle status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// USAGES
// =============================================================================

// CreateUsageRequest records one consumption. Amount is in the unit named
// by Unit; the server converts to the ingredient's standard unit via the
// unit matrix before allocating.
type CreateUsageRequest struct {
	IngredientID int64  `json:"ingredient_id"`
	Date         string `json:"date"`
	MealType     string `json:"meal_type"`
	Amount       string `json:"amount"`
	Unit         string `json:"unit,omitempty"`
}

// UsageDTO represents a consumption record in API responses.
type UsageDTO struct {
	ID           int64  `json:"id"`
	IngredientID int64  `json:"ingredient_id"`
	Date         string `json:"date"`
	MealType     string `json:"meal_type"`
	InputLabel   string `json:"input_label"`
	Quantity     string `json:"quantity"`
	Cost         string `json:"cost"`
	Shortfall    string `json:"shortfall,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

// DayStatDTO is one calendar day's money movement.
type DayStatDTO struct {
	Usage string `json:"usage"`
	Waste string `json:"waste"`
	Total string `json:"total"`
}

// MonthlyReportDTO is the per-day breakdown plus the month rollup.
type MonthlyReportDTO struct {
	Year     int                   `json:"year"`
	Month    int                   `json:"month"`
	Days     map[string]DayStatDTO `json:"days"`
	Shopping string                `json:"shopping"`
	Waste    string                `json:"waste"`
	Usage    string                `json:"usage"`
}

// ExpiringBatchDTO is a batch approaching its expiry date.
type ExpiringBatchDTO struct {
	BatchID       int64  `json:"batch_id"`
	Ingredient    string `json:"ingredient"`
	Unit          string `json:"unit"`
	Remaining     string `json:"remaining"`
	DaysLeft      int    `json:"days_left"`
	PotentialLoss string `json:"potential_loss"`
}

// DashboardDTO is the front-page summary.
type DashboardDTO struct {
	MonthShopping   string             `json:"month_shopping"`
	MonthWaste      string             `json:"month_waste"`
	MonthUsage      string             `json:"month_usage"`
	TodayCost       string             `json:"today_cost"`
	CumulativeWaste string             `json:"cumulative_waste"`
	AssetValue      string             `json:"asset_value"`
	Expiring        []ExpiringBatchDTO `json:"expiring"`
}

// MealGroupDTO is one meal's usages on a given day.
type MealGroupDTO struct {
	MealType string     `json:"meal_type"`
	Total    string     `json:"total"`
	Items    []UsageDTO `json:"items"`
}

// DailyReportDTO is one day's consumption grouped by meal.
type DailyReportDTO struct {
	Date  string         `json:"date"`
	Total string         `json:"total"`
	Meals []MealGroupDTO `json:"meals"`
}

// =============================================================================
// UNITS
// =============================================================================

// UnitDTO represents a unit-matrix entry.
type UnitDTO struct {
	Name            string `json:"name"`
	RatioToStandard string `json:"ratio_to_standard"`
	GuideImageURL   string `json:"guide_image_url,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toIngredientDTO(ing *pantry.Ingredient) IngredientDTO {
	return IngredientDTO{
		ID:           int64(ing.ID),
		Name:         ing.Name,
		Category:     ing.Category,
		Mode:         string(ing.Mode),
		StandardUnit: string(ing.StandardUnit),
	}
}

func toEventDTO(e *pantry.ShoppingEvent) EventDTO {
	return EventDTO{
		ID:         int64(e.ID),
		Date:       e.Date.String(),
		Place:      e.Place,
		TotalCost:  e.TotalCost.String(),
		TotalWaste: e.TotalWaste.String(),
	}
}

func toBatchDTO(b *pantry.Batch) BatchDTO {
	dto := BatchDTO{
		ID:            int64(b.ID),
		IngredientID:  int64(b.IngredientID),
		EventID:       int64(b.EventID),
		PurchaseDate:  b.PurchaseDate.String(),
		Quantity:      b.Quantity.String(),
		Remaining:     b.Remaining.String(),
		UnitCost:      b.UnitCost.String(),
		DiscardedQty:  b.DiscardedQty.String(),
		DiscardedCost: b.DiscardedCost.String(),
		Status:        string(b.Status),
		Version:       b.Version,
	}
	if b.ExpiryDate != nil {
		dto.ExpiryDate = b.ExpiryDate.String()
	}
	return dto
}

func toUsageDTO(u *pantry.Usage) UsageDTO {
	return UsageDTO{
		ID:           int64(u.ID),
		IngredientID: int64(u.IngredientID),
		Date:         u.Date.String(),
		MealType:     u.MealType,
		InputLabel:   u.InputLabel,
		Quantity:     u.Quantity.String(),
		Cost:         u.Cost.String(),
	}
}
