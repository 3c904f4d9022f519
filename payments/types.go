/*
Package payments provides the transaction replay engine.

PURPOSE:
  Rebuilds per-client account state by replaying an ordered log of
  transaction records. Money-movement records (deposit, withdrawal) change
  funds directly. Dispute-family records (dispute, resolve, chargeback)
  act on a money-movement record seen earlier in the same log.

KEY CONCEPTS IN THIS FILE (types.go):
  - OperationKind: The closed set of record types
  - Transaction: One parsed record, optionally linked to its referent
  - ClientID / TxID: Typed identifiers bounded to 16 and 32 bits

DESIGN PRINCIPLES:
  1. Precision: Amounts use decimal.Decimal, never float64
  2. Ownership: A linked referent is a private copy, never a shared handle
  3. Leniency: The engine never rejects a well-formed record

USAGE:
  engine := payments.NewEngine(store.NewMemory())
  engine.Apply(payments.Transaction{
      Kind:   payments.Deposit,
      Client: 1,
      Tx:     1,
      Amount: payments.NewAmount("1.5"),
  })

SEE ALSO:
  - link.go: Resolving dispute-family records against the ledger index
  - account.go: Per-account state update
  - engine.go: The replay fold
*/
package payments

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID uint16
type TxID uint32

// =============================================================================
// OPERATION KIND
// =============================================================================

type OperationKind string

const (
	Deposit    OperationKind = "deposit"
	Withdrawal OperationKind = "withdrawal"
	Dispute    OperationKind = "dispute"
	Resolve    OperationKind = "resolve"
	Chargeback OperationKind = "chargeback"
)

// ParseKind maps an input tag to an OperationKind.
// Matching is exact and case-sensitive.
func ParseKind(raw string) (OperationKind, error) {
	switch k := OperationKind(raw); k {
	case Deposit, Withdrawal, Dispute, Resolve, Chargeback:
		return k, nil
	}
	return "", &InvalidKindError{Raw: raw}
}

func (k OperationKind) String() string { return string(k) }

// IsMoneyMovement reports whether records of this kind may be referenced later.
func (k OperationKind) IsMoneyMovement() bool {
	return k == Deposit || k == Withdrawal
}

// IsDisputeFamily reports whether records of this kind act on an earlier record.
func (k OperationKind) IsDisputeFamily() bool {
	return k == Dispute || k == Resolve || k == Chargeback
}

// =============================================================================
// TRANSACTION - One record of the input log
// =============================================================================

// Transaction is a single parsed record.
//
// Dispute-family records reuse the Tx of the record they act on. Ref is nil
// straight after parsing and is only ever set by Link, which stores a copy
// of the referenced record.
type Transaction struct {
	Kind   OperationKind
	Client ClientID
	Tx     TxID

	// Amount keeps "not supplied" (Valid == false) apart from an explicit
	// zero. Value() collapses the two for arithmetic.
	Amount decimal.NullDecimal

	Ref *Transaction
}

// Value returns the amount, or zero when none was supplied.
func (t Transaction) Value() decimal.Decimal {
	if !t.Amount.Valid {
		return decimal.Zero
	}
	return t.Amount.Decimal
}

// Linked reports whether a dispute-family record found its referent.
func (t Transaction) Linked() bool { return t.Ref != nil }

func (t Transaction) IsMoneyMovement() bool { return t.Kind.IsMoneyMovement() }
func (t Transaction) IsDisputeFamily() bool { return t.Kind.IsDisputeFamily() }

// =============================================================================
// AMOUNT HELPERS
// =============================================================================

// NewAmount parses s into a supplied amount. An empty string yields an
// absent amount. It panics on malformed input and is meant for tests and
// fixtures; parsers should use ParseAmount.
func NewAmount(s string) decimal.NullDecimal {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAmount parses s. An empty string is "no amount supplied", not zero.
func ParseAmount(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// FormatAmount renders d at its natural precision: "1.0" stays "1.0" and
// "1.50" stays "1.50". No rounding is applied.
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
