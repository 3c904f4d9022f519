/*
link.go - Resolving dispute-family records

PURPOSE:
  A dispute, resolve or chargeback row only names a transaction id. Before
  it can be applied, the record it acts on has to be looked up in the
  ledger index and attached.

CRITICAL INVARIANTS:
  1. COPY AT LINK TIME: The attached record is a copy. Later changes to the
     index entry never reach an already linked record.
  2. NO FAILURE PATH: A miss leaves Ref nil; it is not an error.
  3. MONEY MOVEMENT UNTOUCHED: Deposits and withdrawals are returned as is.

SEE ALSO:
  - store/memory.go: Default Index implementation
  - account.go: How a linked record is applied
*/
package payments

// =============================================================================
// INDEX - TxID -> money-movement record
// =============================================================================

// Index maps transaction ids to the money-movement records seen so far.
// It is the only way dispute-family records find their referent and it is
// never pruned during a run.
type Index interface {
	// Put stores tx under tx.Tx, overwriting any earlier entry.
	Put(tx Transaction)

	// Get returns the record stored under id.
	Get(id TxID) (Transaction, bool)

	// Len returns the number of stored records.
	Len() int
}

// Link resolves the back-reference of a dispute-family record.
func Link(tx Transaction, index Index) Transaction {
	if !tx.IsDisputeFamily() {
		return tx
	}
	tx.Ref = nil
	if ref, ok := index.Get(tx.Tx); ok {
		ref.Ref = nil
		tx.Ref = &ref
	}
	return tx
}
