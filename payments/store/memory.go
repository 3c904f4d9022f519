// Package store provides payments.Index implementations.
package store

import (
	"github.com/warp/payments-engine/payments"
)

// =============================================================================
// MEMORY INDEX - In-memory ledger index, one per replay run
// =============================================================================

// Memory is a map-backed ledger index. It is owned by a single engine and
// is not safe for concurrent use.
type Memory struct {
	records map[payments.TxID]payments.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[payments.TxID]payments.Transaction),
	}
}

// Put stores tx, replacing any record with the same id.
func (m *Memory) Put(tx payments.Transaction) {
	m.records[tx.Tx] = tx
}

// Get returns a copy of the stored record.
func (m *Memory) Get(id payments.TxID) (payments.Transaction, bool) {
	tx, ok := m.records[id]
	return tx, ok
}

func (m *Memory) Len() int {
	return len(m.records)
}
