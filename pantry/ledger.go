/*
ledger.go - The batch ledger engine

PURPOSE:
  Ledger is the single entry point for every mutation of the inventory:
  recording purchases, costing consumption via FIFO, discarding waste, and
  reversing usages. It owns no state of its own; all state lives behind the
  TxStore, and every mutating method runs inside one store transaction.

WHY ONE TRANSACTION PER OPERATION?
  The cost figure and the row mutations that produced it must commit
  together. A failure mid-allocation must leave the ledger exactly as the
  last commit left it - never partially-decremented batches without a
  matching usage record.

SEE ALSO:
  - allocator.go: FIFO depletion
  - purchase.go: Trip and batch entry
  - waste.go: Discards
  - reversal.go: Usage reversal
  - aggregate.go: Read-side reports
*/
package pantry

// Ledger coordinates all inventory mutations through a transactional store.
type Ledger struct {
	store TxStore
}

func NewLedger(store TxStore) *Ledger {
	return &Ledger{store: store}
}

// Store exposes the underlying store for read-only callers (reports, API
// listings). Mutations must go through Ledger methods.
func (l *Ledger) Store() TxStore {
	return l.store
}
