/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements pantry.Store and pantry.TxStore using SQLite. The schema is
  the permanent batch ledger: purchase rows are inserted once, mutated only
  through UpdateBatch, and never deleted.

KEY TABLES:
  ingredients:       Food items and their standard units
  shopping_events:   Grocery trips with running cost/waste totals
  purchases:         The batch ledger (one row per purchase lot)
  usages:            Consumption records costed by the FIFO allocator
  usage_allocations: Per-usage trace of which batches were consumed
  unit_matrix:       Household unit to standard unit multipliers

NUMERIC STORAGE:
  Quantities and costs are stored as decimal strings and round-trip exactly.
  SQL-side comparisons go through CAST(... AS REAL), which only gates which
  rows are fetched; all arithmetic stays in decimal on the Go side.

OPTIMISTIC CONCURRENCY:
  Every purchase row carries a version counter. UpdateBatch applies only
  when the caller's snapshot version matches the stored one; a mismatch
  surfaces as pantry.ErrConcurrentModification and aborts the enclosing
  transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/pantry.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := pantry.NewLedger(store)

SEE ALSO:
  - pantry/store.go: Interface definitions
  - pantry/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/hearth/pantry-engine/pantry"
)

// Store implements pantry.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite allows one writer anyway, and ":memory:" would
	// otherwise give every pooled connection its own empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingredients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT 'precision',
		standard_unit TEXT NOT NULL DEFAULT 'g'
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_ingredients_name
		ON ingredients(name);

	CREATE TABLE IF NOT EXISTS shopping_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		place TEXT NOT NULL DEFAULT '',
		total_cost TEXT NOT NULL DEFAULT '0',
		total_waste TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_events_date
		ON shopping_events(date);

	-- The batch ledger. Rows are never deleted.
	CREATE TABLE IF NOT EXISTS purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ingredient_id INTEGER NOT NULL REFERENCES ingredients(id),
		event_id INTEGER REFERENCES shopping_events(id),
		purchase_date TEXT NOT NULL,
		expiry_date TEXT,
		quantity TEXT NOT NULL,
		remaining_quantity TEXT NOT NULL,
		unit_cost TEXT NOT NULL,
		discarded_quantity TEXT NOT NULL DEFAULT '0',
		discarded_cost TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_ingredient_date
		ON purchases(ingredient_id, purchase_date);
	CREATE INDEX IF NOT EXISTS idx_purchases_event
		ON purchases(event_id);

	CREATE TABLE IF NOT EXISTS usages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ingredient_id INTEGER NOT NULL REFERENCES ingredients(id),
		usage_date TEXT NOT NULL,
		meal_type TEXT NOT NULL DEFAULT '',
		input_label TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL,
		cost TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usages_date
		ON usages(usage_date);

	-- Allocation trace: which batches each usage actually drew from.
	CREATE TABLE IF NOT EXISTS usage_allocations (
		usage_id INTEGER NOT NULL REFERENCES usages(id) ON DELETE CASCADE,
		purchase_id INTEGER NOT NULL REFERENCES purchases(id),
		quantity TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_usage
		ON usage_allocations(usage_id);

	CREATE TABLE IF NOT EXISTS unit_matrix (
		unit_name TEXT PRIMARY KEY,
		ratio_to_standard TEXT NOT NULL,
		guide_image_url TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB / *sql.Tx the row helpers need, so the same
// code serves both transactional and direct access.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// fifoOrder sorts oldest purchase first, unknown expiries after known ones,
// id as the final deterministic tie-break. Must match pantry.FIFOBefore.
const fifoOrder = "ORDER BY purchase_date ASC, expiry_date IS NULL ASC, expiry_date ASC, id ASC"

// =============================================================================
// INGREDIENTS
// =============================================================================

func (s *Store) InsertIngredient(ctx context.Context, ing *pantry.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertIngredient(ctx, s.db, ing)
}

func insertIngredient(ctx context.Context, db dbtx, ing *pantry.Ingredient) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO ingredients (name, category, mode, standard_unit) VALUES (?, ?, ?, ?)`,
		ing.Name, ing.Category, ing.Mode, ing.StandardUnit,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingredient: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ing.ID = pantry.IngredientID(id)
	return nil
}

func (s *Store) GetIngredient(ctx context.Context, id pantry.IngredientID) (*pantry.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getIngredient(ctx, s.db, id)
}

func getIngredient(ctx context.Context, db dbtx, id pantry.IngredientID) (*pantry.Ingredient, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, category, mode, standard_unit FROM ingredients WHERE id = ?`, id)
	return scanIngredient(row)
}

func (s *Store) FindIngredientByName(ctx context.Context, name string) (*pantry.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findIngredientByName(ctx, s.db, name)
}

func findIngredientByName(ctx context.Context, db dbtx, name string) (*pantry.Ingredient, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, category, mode, standard_unit FROM ingredients WHERE name = ?`, name)
	return scanIngredient(row)
}

func scanIngredient(row *sql.Row) (*pantry.Ingredient, error) {
	var ing pantry.Ingredient
	err := row.Scan(&ing.ID, &ing.Name, &ing.Category, &ing.Mode, &ing.StandardUnit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ingredient: %w", err)
	}
	return &ing, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]pantry.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listIngredients(ctx, s.db)
}

func listIngredients(ctx context.Context, db dbtx) ([]pantry.Ingredient, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, category, mode, standard_unit FROM ingredients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pantry.Ingredient
	for rows.Next() {
		var ing pantry.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Category, &ing.Mode, &ing.StandardUnit); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

// =============================================================================
// BATCHES (purchases table)
// =============================================================================

const batchColumns = `id, ingredient_id, event_id, purchase_date, expiry_date,
	quantity, remaining_quantity, unit_cost, discarded_quantity, discarded_cost, status, version`

func (s *Store) InsertBatch(ctx context.Context, b *pantry.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBatch(ctx, s.db, b)
}

func insertBatch(ctx context.Context, db dbtx, b *pantry.Batch) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO purchases
		(ingredient_id, event_id, purchase_date, expiry_date, quantity,
		 remaining_quantity, unit_cost, discarded_quantity, discarded_cost, status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		b.IngredientID,
		nullEventID(b.EventID),
		b.PurchaseDate.String(),
		nullDate(b.ExpiryDate),
		b.Quantity.String(),
		b.Remaining.String(),
		b.UnitCost.String(),
		b.DiscardedQty.String(),
		b.DiscardedCost.String(),
		b.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = pantry.BatchID(id)
	b.Version = 1
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id pantry.BatchID) (*pantry.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBatch(ctx, s.db, id)
}

func getBatch(ctx context.Context, db dbtx, id pantry.BatchID) (*pantry.Batch, error) {
	batches, err := queryBatches(ctx, db,
		`SELECT `+batchColumns+` FROM purchases WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

// UpdateBatch applies the mutation only when the stored version matches the
// caller's snapshot. Unit cost and the identity columns are immutable.
func (s *Store) UpdateBatch(ctx context.Context, b *pantry.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBatch(ctx, s.db, b)
}

func updateBatch(ctx context.Context, db dbtx, b *pantry.Batch) error {
	res, err := db.ExecContext(ctx, `
		UPDATE purchases
		SET remaining_quantity = ?, discarded_quantity = ?, discarded_cost = ?,
		    status = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		b.Remaining.String(),
		b.DiscardedQty.String(),
		b.DiscardedCost.String(),
		b.Status,
		b.ID,
		b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Batches are never deleted, so a missed update means another
		// writer bumped the version first, unless the id itself is bogus.
		existing, err := getBatch(ctx, db, b.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return pantry.ErrBatchNotFound
		}
		return pantry.ErrConcurrentModification
	}
	b.Version++
	return nil
}

func (s *Store) BatchesForAllocation(ctx context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return batchesForAllocation(ctx, s.db, id)
}

func batchesForAllocation(ctx context.Context, db dbtx, id pantry.IngredientID) ([]pantry.Batch, error) {
	return queryBatches(ctx, db, `
		SELECT `+batchColumns+` FROM purchases
		WHERE ingredient_id = ? AND CAST(remaining_quantity AS REAL) > 0
		`+fifoOrder, id)
}

func (s *Store) BatchesForRestore(ctx context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return batchesForRestore(ctx, s.db, id)
}

func batchesForRestore(ctx context.Context, db dbtx, id pantry.IngredientID) ([]pantry.Batch, error) {
	return queryBatches(ctx, db, `
		SELECT `+batchColumns+` FROM purchases
		WHERE ingredient_id = ? AND CAST(remaining_quantity AS REAL) < CAST(quantity AS REAL)
		`+fifoOrder, id)
}

func (s *Store) LatestBatch(ctx context.Context, id pantry.IngredientID) (*pantry.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestBatch(ctx, s.db, id)
}

func latestBatch(ctx context.Context, db dbtx, id pantry.IngredientID) (*pantry.Batch, error) {
	batches, err := queryBatches(ctx, db, `
		SELECT `+batchColumns+` FROM purchases
		WHERE ingredient_id = ?
		ORDER BY purchase_date DESC, id DESC
		LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

func (s *Store) ActiveBatches(ctx context.Context) ([]pantry.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeBatches(ctx, s.db)
}

func activeBatches(ctx context.Context, db dbtx) ([]pantry.Batch, error) {
	return queryBatches(ctx, db, `
		SELECT `+batchColumns+` FROM purchases
		WHERE CAST(remaining_quantity AS REAL) > 0
		`+fifoOrder)
}

func (s *Store) BatchesByEvent(ctx context.Context, id pantry.EventID) ([]pantry.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return batchesByEvent(ctx, s.db, id)
}

func batchesByEvent(ctx context.Context, db dbtx, id pantry.EventID) ([]pantry.Batch, error) {
	return queryBatches(ctx, db,
		`SELECT `+batchColumns+` FROM purchases WHERE event_id = ? ORDER BY id`, id)
}

func queryBatches(ctx context.Context, db dbtx, query string, args ...any) ([]pantry.Batch, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var out []pantry.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBatch(rows *sql.Rows) (pantry.Batch, error) {
	var (
		b            pantry.Batch
		eventID      sql.NullInt64
		purchaseDate string
		expiryDate   sql.NullString
		quantity     string
		remaining    string
		unitCost     string
		discQty      string
		discCost     string
	)

	err := rows.Scan(&b.ID, &b.IngredientID, &eventID, &purchaseDate, &expiryDate,
		&quantity, &remaining, &unitCost, &discQty, &discCost, &b.Status, &b.Version)
	if err != nil {
		return b, fmt.Errorf("failed to scan batch: %w", err)
	}

	if eventID.Valid {
		b.EventID = pantry.EventID(eventID.Int64)
	}
	b.PurchaseDate, err = pantry.ParseDate(purchaseDate)
	if err != nil {
		return b, err
	}
	if expiryDate.Valid {
		d, err := pantry.ParseDate(expiryDate.String)
		if err != nil {
			return b, err
		}
		b.ExpiryDate = &d
	}
	b.Quantity = mustDecimal(quantity)
	b.Remaining = mustDecimal(remaining)
	b.UnitCost = mustDecimal(unitCost)
	b.DiscardedQty = mustDecimal(discQty)
	b.DiscardedCost = mustDecimal(discCost)
	return b, nil
}

// =============================================================================
// SHOPPING EVENTS
// =============================================================================

func (s *Store) InsertEvent(ctx context.Context, e *pantry.ShoppingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEvent(ctx, s.db, e)
}

func insertEvent(ctx context.Context, db dbtx, e *pantry.ShoppingEvent) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO shopping_events (date, place, total_cost, total_waste) VALUES (?, ?, ?, ?)`,
		e.Date.String(), e.Place, e.TotalCost.String(), e.TotalWaste.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = pantry.EventID(id)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id pantry.EventID) (*pantry.ShoppingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEvent(ctx, s.db, id)
}

func getEvent(ctx context.Context, db dbtx, id pantry.EventID) (*pantry.ShoppingEvent, error) {
	events, err := queryEvents(ctx, db,
		`SELECT id, date, place, total_cost, total_waste FROM shopping_events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *pantry.ShoppingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateEvent(ctx, s.db, e)
}

func updateEvent(ctx context.Context, db dbtx, e *pantry.ShoppingEvent) error {
	res, err := db.ExecContext(ctx,
		`UPDATE shopping_events SET date = ?, place = ?, total_cost = ?, total_waste = ? WHERE id = ?`,
		e.Date.String(), e.Place, e.TotalCost.String(), e.TotalWaste.String(), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pantry.ErrEventNotFound
	}
	return nil
}

func (s *Store) EventsInRange(ctx context.Context, from, to pantry.Date) ([]pantry.ShoppingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return eventsInRange(ctx, s.db, from, to)
}

func eventsInRange(ctx context.Context, db dbtx, from, to pantry.Date) ([]pantry.ShoppingEvent, error) {
	return queryEvents(ctx, db, `
		SELECT id, date, place, total_cost, total_waste FROM shopping_events
		WHERE date >= ? AND date < ?
		ORDER BY date ASC, id ASC`,
		from.String(), to.String())
}

func (s *Store) ListEvents(ctx context.Context) ([]pantry.ShoppingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEvents(ctx, s.db)
}

func listEvents(ctx context.Context, db dbtx) ([]pantry.ShoppingEvent, error) {
	return queryEvents(ctx, db,
		`SELECT id, date, place, total_cost, total_waste FROM shopping_events ORDER BY date ASC, id ASC`)
}

func queryEvents(ctx context.Context, db dbtx, query string, args ...any) ([]pantry.ShoppingEvent, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []pantry.ShoppingEvent
	for rows.Next() {
		var (
			e          pantry.ShoppingEvent
			date       string
			totalCost  string
			totalWaste string
		)
		if err := rows.Scan(&e.ID, &date, &e.Place, &totalCost, &totalWaste); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Date, err = pantry.ParseDate(date)
		if err != nil {
			return nil, err
		}
		e.TotalCost = mustDecimal(totalCost)
		e.TotalWaste = mustDecimal(totalWaste)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// USAGES
// =============================================================================

func (s *Store) InsertUsage(ctx context.Context, u *pantry.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertUsage(ctx, s.db, u)
}

func insertUsage(ctx context.Context, db dbtx, u *pantry.Usage) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO usages (ingredient_id, usage_date, meal_type, input_label, quantity, cost)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.IngredientID, u.Date.String(), u.MealType, u.InputLabel,
		u.Quantity.String(), u.Cost.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = pantry.UsageID(id)
	return nil
}

func (s *Store) GetUsage(ctx context.Context, id pantry.UsageID) (*pantry.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUsage(ctx, s.db, id)
}

func getUsage(ctx context.Context, db dbtx, id pantry.UsageID) (*pantry.Usage, error) {
	usages, err := queryUsages(ctx, db,
		`SELECT id, ingredient_id, usage_date, meal_type, input_label, quantity, cost
		 FROM usages WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(usages) == 0 {
		return nil, nil
	}
	return &usages[0], nil
}

func (s *Store) DeleteUsage(ctx context.Context, id pantry.UsageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteUsage(ctx, s.db, id)
}

func deleteUsage(ctx context.Context, db dbtx, id pantry.UsageID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM usages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pantry.ErrUsageNotFound
	}
	return nil
}

func (s *Store) UsagesInRange(ctx context.Context, from, to pantry.Date) ([]pantry.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return usagesInRange(ctx, s.db, from, to)
}

func usagesInRange(ctx context.Context, db dbtx, from, to pantry.Date) ([]pantry.Usage, error) {
	return queryUsages(ctx, db, `
		SELECT id, ingredient_id, usage_date, meal_type, input_label, quantity, cost
		FROM usages
		WHERE usage_date >= ? AND usage_date < ?
		ORDER BY usage_date ASC, id ASC`,
		from.String(), to.String())
}

func (s *Store) UsagesOn(ctx context.Context, day pantry.Date) ([]pantry.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return usagesOn(ctx, s.db, day)
}

func usagesOn(ctx context.Context, db dbtx, day pantry.Date) ([]pantry.Usage, error) {
	return queryUsages(ctx, db, `
		SELECT id, ingredient_id, usage_date, meal_type, input_label, quantity, cost
		FROM usages
		WHERE usage_date = ?
		ORDER BY id ASC`,
		day.String())
}

func queryUsages(ctx context.Context, db dbtx, query string, args ...any) ([]pantry.Usage, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usages: %w", err)
	}
	defer rows.Close()

	var out []pantry.Usage
	for rows.Next() {
		var (
			u        pantry.Usage
			date     string
			quantity string
			cost     string
		)
		if err := rows.Scan(&u.ID, &u.IngredientID, &date, &u.MealType, &u.InputLabel, &quantity, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		u.Date, err = pantry.ParseDate(date)
		if err != nil {
			return nil, err
		}
		u.Quantity = mustDecimal(quantity)
		u.Cost = mustDecimal(cost)
		out = append(out, u)
	}
	return out, rows.Err()
}

// =============================================================================
// ALLOCATION TRACE
// =============================================================================

func (s *Store) InsertAllocations(ctx context.Context, lines []pantry.AllocationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAllocations(ctx, s.db, lines)
}

func insertAllocations(ctx context.Context, db dbtx, lines []pantry.AllocationLine) error {
	for _, line := range lines {
		_, err := db.ExecContext(ctx,
			`INSERT INTO usage_allocations (usage_id, purchase_id, quantity) VALUES (?, ?, ?)`,
			line.UsageID, line.BatchID, line.Quantity.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}
	return nil
}

func (s *Store) AllocationsForUsage(ctx context.Context, id pantry.UsageID) ([]pantry.AllocationLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return allocationsForUsage(ctx, s.db, id)
}

func allocationsForUsage(ctx context.Context, db dbtx, id pantry.UsageID) ([]pantry.AllocationLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT usage_id, purchase_id, quantity FROM usage_allocations WHERE usage_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var out []pantry.AllocationLine
	for rows.Next() {
		var (
			line     pantry.AllocationLine
			quantity string
		)
		if err := rows.Scan(&line.UsageID, &line.BatchID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		line.Quantity = mustDecimal(quantity)
		out = append(out, line)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAllocationsForUsage(ctx context.Context, id pantry.UsageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAllocationsForUsage(ctx, s.db, id)
}

func deleteAllocationsForUsage(ctx context.Context, db dbtx, id pantry.UsageID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM usage_allocations WHERE usage_id = ?`, id)
	return err
}

// =============================================================================
// UNIT MATRIX
// =============================================================================

func (s *Store) SaveUnit(ctx context.Context, u pantry.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUnit(ctx, s.db, u)
}

func saveUnit(ctx context.Context, db dbtx, u pantry.Unit) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO unit_matrix (unit_name, ratio_to_standard, guide_image_url)
		VALUES (?, ?, ?)
		ON CONFLICT(unit_name) DO UPDATE SET
			ratio_to_standard = excluded.ratio_to_standard,
			guide_image_url = excluded.guide_image_url`,
		u.Name, u.RatioToStandard.String(), u.GuideImageURL,
	)
	return err
}

func (s *Store) GetUnit(ctx context.Context, name string) (*pantry.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUnit(ctx, s.db, name)
}

func getUnit(ctx context.Context, db dbtx, name string) (*pantry.Unit, error) {
	var (
		u     pantry.Unit
		ratio string
	)
	err := db.QueryRowContext(ctx,
		`SELECT unit_name, ratio_to_standard, guide_image_url FROM unit_matrix WHERE unit_name = ?`,
		name,
	).Scan(&u.Name, &ratio, &u.GuideImageURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.RatioToStandard = mustDecimal(ratio)
	return &u, nil
}

func (s *Store) ListUnits(ctx context.Context) ([]pantry.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUnits(ctx, s.db)
}

func listUnits(ctx context.Context, db dbtx) ([]pantry.Unit, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT unit_name, ratio_to_standard, guide_image_url FROM unit_matrix ORDER BY unit_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pantry.Unit
	for rows.Next() {
		var (
			u     pantry.Unit
			ratio string
		)
		if err := rows.Scan(&u.Name, &ratio, &u.GuideImageURL); err != nil {
			return nil, err
		}
		u.RatioToStandard = mustDecimal(ratio)
		out = append(out, u)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (pantry.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The store's
// write lock is held for the duration, serializing ledger mutations.
func (s *Store) WithTx(ctx context.Context, fn func(store pantry.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every Store call through the open transaction so reads
// observe the transaction's own uncommitted writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertIngredient(ctx context.Context, ing *pantry.Ingredient) error {
	return insertIngredient(ctx, ts.tx, ing)
}
func (ts *txStore) GetIngredient(ctx context.Context, id pantry.IngredientID) (*pantry.Ingredient, error) {
	return getIngredient(ctx, ts.tx, id)
}
func (ts *txStore) FindIngredientByName(ctx context.Context, name string) (*pantry.Ingredient, error) {
	return findIngredientByName(ctx, ts.tx, name)
}
func (ts *txStore) ListIngredients(ctx context.Context) ([]pantry.Ingredient, error) {
	return listIngredients(ctx, ts.tx)
}
func (ts *txStore) InsertBatch(ctx context.Context, b *pantry.Batch) error {
	return insertBatch(ctx, ts.tx, b)
}
func (ts *txStore) GetBatch(ctx context.Context, id pantry.BatchID) (*pantry.Batch, error) {
	return getBatch(ctx, ts.tx, id)
}
func (ts *txStore) UpdateBatch(ctx context.Context, b *pantry.Batch) error {
	return updateBatch(ctx, ts.tx, b)
}
func (ts *txStore) BatchesForAllocation(ctx context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	return batchesForAllocation(ctx, ts.tx, id)
}
func (ts *txStore) BatchesForRestore(ctx context.Context, id pantry.IngredientID) ([]pantry.Batch, error) {
	return batchesForRestore(ctx, ts.tx, id)
}
func (ts *txStore) LatestBatch(ctx context.Context, id pantry.IngredientID) (*pantry.Batch, error) {
	return latestBatch(ctx, ts.tx, id)
}
func (ts *txStore) ActiveBatches(ctx context.Context) ([]pantry.Batch, error) {
	return activeBatches(ctx, ts.tx)
}
func (ts *txStore) BatchesByEvent(ctx context.Context, id pantry.EventID) ([]pantry.Batch, error) {
	return batchesByEvent(ctx, ts.tx, id)
}
func (ts *txStore) InsertEvent(ctx context.Context, e *pantry.ShoppingEvent) error {
	return insertEvent(ctx, ts.tx, e)
}
func (ts *txStore) GetEvent(ctx context.Context, id pantry.EventID) (*pantry.ShoppingEvent, error) {
	return getEvent(ctx, ts.tx, id)
}
func (ts *txStore) UpdateEvent(ctx context.Context, e *pantry.ShoppingEvent) error {
	return updateEvent(ctx, ts.tx, e)
}
func (ts *txStore) EventsInRange(ctx context.Context, from, to pantry.Date) ([]pantry.ShoppingEvent, error) {
	return eventsInRange(ctx, ts.tx, from, to)
}
func (ts *txStore) ListEvents(ctx context.Context) ([]pantry.ShoppingEvent, error) {
	return listEvents(ctx, ts.tx)
}
func (ts *txStore) InsertUsage(ctx context.Context, u *pantry.Usage) error {
	return insertUsage(ctx, ts.tx, u)
}
func (ts *txStore) GetUsage(ctx context.Context, id pantry.UsageID) (*pantry.Usage, error) {
	return getUsage(ctx, ts.tx, id)
}
func (ts *txStore) DeleteUsage(ctx context.Context, id pantry.UsageID) error {
	return deleteUsage(ctx, ts.tx, id)
}
func (ts *txStore) UsagesInRange(ctx context.Context, from, to pantry.Date) ([]pantry.Usage, error) {
	return usagesInRange(ctx, ts.tx, from, to)
}
func (ts *txStore) UsagesOn(ctx context.Context, day pantry.Date) ([]pantry.Usage, error) {
	return usagesOn(ctx, ts.tx, day)
}
func (ts *txStore) InsertAllocations(ctx context.Context, lines []pantry.AllocationLine) error {
	return insertAllocations(ctx, ts.tx, lines)
}
func (ts *txStore) AllocationsForUsage(ctx context.Context, id pantry.UsageID) ([]pantry.AllocationLine, error) {
	return allocationsForUsage(ctx, ts.tx, id)
}
func (ts *txStore) DeleteAllocationsForUsage(ctx context.Context, id pantry.UsageID) error {
	return deleteAllocationsForUsage(ctx, ts.tx, id)
}
func (ts *txStore) SaveUnit(ctx context.Context, u pantry.Unit) error {
	return saveUnit(ctx, ts.tx, u)
}
func (ts *txStore) GetUnit(ctx context.Context, name string) (*pantry.Unit, error) {
	return getUnit(ctx, ts.tx, name)
}
func (ts *txStore) ListUnits(ctx context.Context) ([]pantry.Unit, error) {
	return listUnits(ctx, ts.tx)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullEventID(id pantry.EventID) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}

func nullDate(d *pantry.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
