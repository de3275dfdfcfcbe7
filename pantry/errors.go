/*
errors.go - Centralized error types for the pantry engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP status codes.

ERROR CATEGORIES:
  1. Not-found errors - unknown ingredient/batch/usage/event ids
  2. Validation errors - negative quantities, discards exceeding stock
  3. Consistency errors - reversal with nowhere to restore, lost updates

USAGE:
  if errors.Is(err, pantry.ErrInvalidAmount) { ... }

SEE ALSO:
  - allocator.go, waste.go, reversal.go: produce these errors
  - api/handlers.go: translates them into responses
*/
package pantry

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIngredientNotFound is returned when a referenced ingredient doesn't exist.
	ErrIngredientNotFound = errors.New("ingredient not found")

	// ErrBatchNotFound is returned when a referenced batch doesn't exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrUsageNotFound is returned when a referenced usage doesn't exist.
	// Reversing the same usage twice yields this on the second call.
	ErrUsageNotFound = errors.New("usage not found")

	// ErrEventNotFound is returned when a referenced shopping event doesn't exist.
	ErrEventNotFound = errors.New("shopping event not found")

	// ErrInvalidAmount is returned for negative quantities, discards that
	// exceed a batch's remaining stock, and malformed dates.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInconsistentState is returned when a reversal has nowhere to
	// restore stock (no batch exists for the ingredient at all).
	ErrInconsistentState = errors.New("inconsistent ledger state")

	// ErrConcurrentModification is returned when the optimistic version
	// check detects a lost update on a batch row.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAmountError explains what made an amount invalid.
type InvalidAmountError struct {
	Op        string // "allocate", "discard", ...
	Requested decimal.Decimal
	Available decimal.Decimal
	Reason    string
}

func (e *InvalidAmountError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: invalid amount %v: %s", e.Op, e.Requested, e.Reason)
	}
	return fmt.Sprintf("%s: invalid amount %v (available %v)", e.Op, e.Requested, e.Available)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// RestoreError explains a reversal that could not place its quantity.
type RestoreError struct {
	UsageID      UsageID
	IngredientID IngredientID
	Unplaced     decimal.Decimal
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("reverse usage %d: %v units of ingredient %d have no batch to restore into",
		e.UsageID, e.Unplaced, e.IngredientID)
}

func (e *RestoreError) Unwrap() error { return ErrInconsistentState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIngredientNotFound) ||
		errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrUsageNotFound) ||
		errors.Is(err, ErrEventNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) || IsNotFound(err)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
