/*
handlers.go - HTTP API handlers for the pantry ledger

PURPOSE:
  Exposes the pantry engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Ingredients:
    GET    /api/ingredients            List ingredients
    POST   /api/ingredients            Register ingredient

  Shopping:
    POST   /api/shopping-events        Record a trip (event + batches)
    GET    /api/shopping-events        List events
    GET    /api/shopping-events/{id}   Event detail with its batches
    POST   /api/batches                Record a standalone batch

  Inventory:
    GET    /api/inventory              Active batches
    GET    /api/inventory/value        Current asset value
    GET    /api/inventory/expiring     Batches expiring soon
    POST   /api/batches/{id}/discard   Throw away part or all of a batch
    POST   /api/batches/{id}/status    Idempotent full-discard

  Usage:
    POST   /api/usages                 Record consumption (FIFO costed)
    DELETE /api/usages/{id}            Reverse a usage

  Reports:
    GET    /api/reports/dashboard      Front-page rollup
    GET    /api/reports/monthly        Per-day usage/waste for a month
    GET    /api/reports/daily/{date}   One day grouped by meal

  Units:
    GET    /api/units                  Unit matrix
    POST   /api/units                  Upsert a unit

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, converter, aggregates)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amounts
  - 404: Resource not found
  - 409: Concurrent modification (retryable)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hearth/pantry-engine/pantry"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *pantry.Ledger
	Converter *pantry.Converter
}

// NewHandler creates a new handler over the given transactional store.
func NewHandler(store pantry.TxStore) *Handler {
	return &Handler{
		Ledger:    pantry.NewLedger(store),
		Converter: pantry.NewConverter(store),
	}
}

// =============================================================================
// INGREDIENT HANDLERS
// =============================================================================

// ListIngredients returns all registered ingredients.
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.Ledger.Store().ListIngredients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ingredients", err)
		return
	}

	dtos := make([]IngredientDTO, len(ingredients))
	for i := range ingredients {
		dtos[i] = toIngredientDTO(&ingredients[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateIngredient registers a new ingredient.
func (h *Handler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	var req CreateIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	ing := &pantry.Ingredient{
		Name:         req.Name,
		Category:     req.Category,
		Mode:         pantry.MeasureMode(req.Mode),
		StandardUnit: pantry.StandardUnit(req.StandardUnit),
	}
	if ing.Mode == "" {
		ing.Mode = pantry.ModePrecision
	}
	if ing.StandardUnit == "" {
		ing.StandardUnit = pantry.UnitGram
	}

	if err := h.Ledger.Store().InsertIngredient(r.Context(), ing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create ingredient", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIngredientDTO(ing))
}

// =============================================================================
// SHOPPING HANDLERS
// =============================================================================

// CreateTrip records a shopping trip: one event plus a batch per line.
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := pantry.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items must not be empty", nil)
		return
	}

	in := pantry.TripInput{Date: date, Place: req.Place}
	for _, item := range req.Items {
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid quantity: "+item.Quantity, err)
			return
		}
		price, err := decimal.NewFromString(item.LinePrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid line_price: "+item.LinePrice, err)
			return
		}
		ti := pantry.TripItem{
			Name:      item.Name,
			Category:  item.Category,
			Quantity:  qty,
			Unit:      pantry.StandardUnit(item.Unit),
			LinePrice: price,
		}
		if item.ExpiryDate != "" {
			exp, err := pantry.ParseDate(item.ExpiryDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid expiry_date: "+item.ExpiryDate, err)
				return
			}
			ti.ExpiryDate = &exp
		}
		in.Items = append(in.Items, ti)
	}
	if req.TotalPaid != "" {
		paid, err := decimal.NewFromString(req.TotalPaid)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid total_paid: "+req.TotalPaid, err)
			return
		}
		in.TotalPaid = &paid
	}

	event, err := h.Ledger.RecordTrip(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to record trip", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(event))
}

// ListEvents returns all shopping events, oldest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Ledger.Store().ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i := range events {
		dtos[i] = toEventDTO(&events[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEvent returns one event with its batches.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	ctx := r.Context()
	event, err := h.Ledger.Store().GetEvent(ctx, pantry.EventID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "Event not found", nil)
		return
	}

	batches, err := h.Ledger.Store().BatchesByEvent(ctx, event.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get event batches", err)
		return
	}

	detail := EventDetailDTO{EventDTO: toEventDTO(event)}
	for i := range batches {
		dto := toBatchDTO(&batches[i])
		if ing, err := h.Ledger.Store().GetIngredient(ctx, batches[i].IngredientID); err == nil && ing != nil {
			dto.Ingredient = ing.Name
		}
		detail.Batches = append(detail.Batches, dto)
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateBatch records a single purchase batch outside a trip.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := pantry.ParseDate(req.PurchaseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid purchase_date format (use YYYY-MM-DD)", err)
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity", err)
		return
	}
	unitCost, err := decimal.NewFromString(req.UnitCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid unit_cost", err)
		return
	}

	in := pantry.BatchInput{
		IngredientID: pantry.IngredientID(req.IngredientID),
		PurchaseDate: date,
		Quantity:     qty,
		UnitCost:     unitCost,
		EventID:      pantry.EventID(req.EventID),
	}
	if req.ExpiryDate != "" {
		exp, err := pantry.ParseDate(req.ExpiryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expiry_date", err)
			return
		}
		in.ExpiryDate = &exp
	}

	batchID, err := h.Ledger.RecordBatch(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to record batch", err)
		return
	}

	batch, err := h.Ledger.Store().GetBatch(r.Context(), batchID)
	if err != nil || batch == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created batch", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(batch))
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// ListInventory returns every batch with stock remaining.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batches, err := h.Ledger.Store().ActiveBatches(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list inventory", err)
		return
	}

	// Resolve ingredient names once, not per batch.
	names := make(map[pantry.IngredientID]string)
	ingredients, err := h.Ledger.Store().ListIngredients(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ingredients", err)
		return
	}
	for _, ing := range ingredients {
		names[ing.ID] = ing.Name
	}

	dtos := make([]BatchDTO, len(batches))
	for i := range batches {
		dtos[i] = toBatchDTO(&batches[i])
		dtos[i].Ingredient = names[batches[i].IngredientID]
	}
	writeJSON(w, http.StatusOK, dtos)
}

// InventoryValue returns the money currently sitting in the pantry.
func (h *Handler) InventoryValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.Ledger.AssetValue(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute asset value", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": value.String()})
}

// InventoryExpiring lists batches expiring within ?days= (default 7).
func (h *Handler) InventoryExpiring(w http.ResponseWriter, r *http.Request) {
	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid days parameter", err)
			return
		}
		days = n
	}

	expiring, err := h.Ledger.ExpiringSoon(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expiring batches", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpiringDTOs(expiring))
}

// DiscardBatch throws away part or all of a batch's remaining stock.
func (h *Handler) DiscardBatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch id", err)
		return
	}

	var req DiscardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var amount *decimal.Decimal
	if req.Amount != "" {
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		amount = &amt
	}

	wasteCost, err := h.Ledger.Discard(r.Context(), pantry.BatchID(id), amount)
	if err != nil {
		writeDomainError(w, "Failed to discard", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"waste_cost": wasteCost.String()})
}

// SetBatchStatus handles the idempotent full-discard toggle.
func (h *Handler) SetBatchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch id", err)
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Status != string(pantry.StatusDiscarded) {
		writeError(w, http.StatusBadRequest, "Only status \"discarded\" is supported", nil)
		return
	}

	if err := h.Ledger.SetFullyDiscarded(r.Context(), pantry.BatchID(id)); err != nil {
		writeDomainError(w, "Failed to update status", err)
		return
	}

	batch, err := h.Ledger.Store().GetBatch(r.Context(), pantry.BatchID(id))
	if err != nil || batch == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load batch", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(batch))
}

// =============================================================================
// USAGE HANDLERS
// =============================================================================

// CreateUsage converts the human-unit amount, allocates it FIFO, and records
// the usage with its cost.
func (h *Handler) CreateUsage(w http.ResponseWriter, r *http.Request) {
	var req CreateUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := pantry.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	ctx := r.Context()
	quantity, label, err := h.Converter.ToStandard(ctx, amount, req.Unit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to convert unit", err)
		return
	}

	usage, shortfall, err := h.Ledger.RecordUsage(ctx, pantry.UsageInput{
		IngredientID: pantry.IngredientID(req.IngredientID),
		Date:         date,
		MealType:     req.MealType,
		InputLabel:   label,
		Quantity:     quantity,
	})
	if err != nil {
		writeDomainError(w, "Failed to record usage", err)
		return
	}

	dto := toUsageDTO(usage)
	if shortfall.IsPositive() {
		dto.Shortfall = shortfall.String()
	}
	writeJSON(w, http.StatusCreated, dto)
}

// DeleteUsage reverses a usage: stock goes back to its batches and the
// record disappears.
func (h *Handler) DeleteUsage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid usage id", err)
		return
	}

	if err := h.Ledger.ReverseUsage(r.Context(), pantry.UsageID(id)); err != nil {
		writeDomainError(w, "Failed to reverse usage", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reversed"})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// Dashboard returns the front-page rollup for the current month.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := pantry.Today()

	summary, err := h.Ledger.MonthlySummary(ctx, today.Year(), today.Month())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute monthly summary", err)
		return
	}
	todayCost, err := h.Ledger.DailyCost(ctx, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute daily cost", err)
		return
	}
	cumWaste, err := h.Ledger.CumulativeWaste(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute cumulative waste", err)
		return
	}
	assetValue, err := h.Ledger.AssetValue(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute asset value", err)
		return
	}
	expiring, err := h.Ledger.ExpiringSoon(ctx, 7)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expiring batches", err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		MonthShopping:   summary.Shopping.String(),
		MonthWaste:      summary.Waste.String(),
		MonthUsage:      summary.Usage.String(),
		TodayCost:       todayCost.String(),
		CumulativeWaste: cumWaste.String(),
		AssetValue:      assetValue.String(),
		Expiring:        toExpiringDTOs(expiring),
	})
}

// MonthlyReport returns per-day usage/waste for ?year=&month= (default: now).
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	today := pantry.Today()
	year, month := today.Year(), today.Month()

	if s := r.URL.Query().Get("year"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = n
	}
	if s := r.URL.Query().Get("month"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		month = time.Month(n)
	}

	ctx := r.Context()
	stats, err := h.Ledger.MonthlyStats(ctx, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute monthly stats", err)
		return
	}
	summary, err := h.Ledger.MonthlySummary(ctx, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute monthly summary", err)
		return
	}

	days := make(map[string]DayStatDTO, len(stats))
	for key, s := range stats {
		days[key] = DayStatDTO{
			Usage: s.Usage.String(),
			Waste: s.Waste.String(),
			Total: s.Total.String(),
		}
	}

	writeJSON(w, http.StatusOK, MonthlyReportDTO{
		Year:     year,
		Month:    int(month),
		Days:     days,
		Shopping: summary.Shopping.String(),
		Waste:    summary.Waste.String(),
		Usage:    summary.Usage.String(),
	})
}

// DailyReport returns one day's consumption grouped by meal.
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	date, err := pantry.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	groups, err := h.Ledger.DailyDetail(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute daily detail", err)
		return
	}

	report := DailyReportDTO{Date: date.String(), Meals: []MealGroupDTO{}}
	total := decimal.Zero
	for _, g := range groups {
		mg := MealGroupDTO{MealType: g.MealType, Total: g.Total.String()}
		for i := range g.Items {
			mg.Items = append(mg.Items, toUsageDTO(&g.Items[i]))
		}
		report.Meals = append(report.Meals, mg)
		total = total.Add(g.Total)
	}
	report.Total = total.String()

	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// UNIT HANDLERS
// =============================================================================

// ListUnits returns the unit matrix.
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Ledger.Store().ListUnits(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list units", err)
		return
	}

	dtos := make([]UnitDTO, len(units))
	for i, u := range units {
		dtos[i] = UnitDTO{
			Name:            u.Name,
			RatioToStandard: u.RatioToStandard.String(),
			GuideImageURL:   u.GuideImageURL,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveUnit upserts one unit-matrix entry.
func (h *Handler) SaveUnit(w http.ResponseWriter, r *http.Request) {
	var req UnitDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	ratio, err := decimal.NewFromString(req.RatioToStandard)
	if err != nil || !ratio.IsPositive() {
		writeError(w, http.StatusBadRequest, "ratio_to_standard must be a positive decimal", err)
		return
	}

	unit := pantry.Unit{Name: req.Name, RatioToStandard: ratio, GuideImageURL: req.GuideImageURL}
	if err := h.Ledger.Store().SaveUnit(r.Context(), unit); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case pantry.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, pantry.ErrConcurrentModification):
		writeError(w, http.StatusConflict, message, err)
	case pantry.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func toExpiringDTOs(expiring []pantry.ExpiringBatch) []ExpiringBatchDTO {
	dtos := make([]ExpiringBatchDTO, len(expiring))
	for i, e := range expiring {
		dtos[i] = ExpiringBatchDTO{
			BatchID:       int64(e.BatchID),
			Ingredient:    e.Ingredient,
			Unit:          string(e.Unit),
			Remaining:     e.Remaining.String(),
			DaysLeft:      e.DaysLeft,
			PotentialLoss: e.PotentialLoss.String(),
		}
	}
	return dtos
}
