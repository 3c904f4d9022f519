package payments

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT - Per-client state
// =============================================================================

// Account is the running state of one client.
//
// Total is derived and never stored. Locked is set by a chargeback and is
// never cleared, but it is not checked either: a locked account keeps
// accepting operations.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount returns an unlocked account with zero balances.
func NewAccount(client ClientID) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Apply updates the account with one (already linked) record.
//
// Withdrawals may overdraw. Dispute-family records without a linked
// referent leave the account unchanged.
func (a *Account) Apply(tx Transaction) {
	switch tx.Kind {
	case Deposit:
		a.Available = a.Available.Add(tx.Value())
	case Withdrawal:
		a.Available = a.Available.Sub(tx.Value())
	case Dispute:
		if tx.Ref == nil {
			return
		}
		amount := tx.Ref.Value()
		a.Held = a.Held.Add(amount)
		a.Available = a.Available.Sub(amount)
	case Resolve:
		if tx.Ref == nil {
			return
		}
		amount := tx.Ref.Value()
		a.Held = a.Held.Sub(amount)
		a.Available = a.Available.Add(amount)
	case Chargeback:
		if tx.Ref == nil {
			return
		}
		amount := tx.Ref.Value()
		a.Held = a.Held.Sub(amount)
		a.Available = a.Available.Sub(amount)
		a.Locked = true
	}
}

// SortByClient orders accounts by ascending client id, in place.
func SortByClient(accounts []Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Client < accounts[j].Client
	})
}
