package payments_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payments-engine/payments"
	"github.com/warp/payments-engine/payments/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestEngine(opts ...payments.Option) *payments.Engine {
	return payments.NewEngine(store.NewMemory(), opts...)
}

// sliceSource yields records and errors in order, then io.EOF.
type sliceSource struct {
	items []sourceItem
}

type sourceItem struct {
	tx  payments.Transaction
	err error
}

func (s *sliceSource) Next() (payments.Transaction, error) {
	if len(s.items) == 0 {
		return payments.Transaction{}, io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	return item.tx, item.err
}

func records(txs ...payments.Transaction) *sliceSource {
	src := &sliceSource{}
	for _, tx := range txs {
		src.items = append(src.items, sourceItem{tx: tx})
	}
	return src
}

func mustAccount(t *testing.T, e *payments.Engine, client payments.ClientID) payments.Account {
	t.Helper()
	a, ok := e.Account(client)
	require.True(t, ok, "account %d should exist", client)
	return a
}

type recordingSink struct {
	got []payments.Account
	err error
}

func (s *recordingSink) WriteAccounts(_ context.Context, accounts []payments.Account) error {
	s.got = accounts
	return s.err
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestEngine_TotalIsAlwaysAvailablePlusHeld(t *testing.T) {
	checked := 0
	engine := newTestEngine(payments.WithObserver(func(a payments.Account) {
		checked++
		assert.True(t, a.Total().Equal(a.Available.Add(a.Held)))
	}))

	_, err := engine.Replay(records(
		deposit(1, 1, "10"),
		deposit(2, 2, "3.25"),
		withdrawal(1, 3, "2.5"),
		ref(payments.Dispute, 1, 1),
		ref(payments.Dispute, 2, 2),
		ref(payments.Resolve, 1, 1),
		ref(payments.Chargeback, 2, 2),
		ref(payments.Dispute, 1, 404),
	))
	require.NoError(t, err)
	assert.Equal(t, 8, checked)
}

func TestEngine_DepositsAggregateAcrossInterleaving(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Replay(records(
		deposit(1, 1, "10"),
		deposit(2, 2, "7"),
		withdrawal(2, 3, "1"),
		deposit(1, 4, "5"),
	))
	require.NoError(t, err)

	assertAmount(t, "15", mustAccount(t, engine, 1).Available)
	assertAmount(t, "6", mustAccount(t, engine, 2).Available)
}

func TestEngine_DisputeResolveRoundTripIsNeutral(t *testing.T) {
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "10"))

	engine.Apply(ref(payments.Dispute, 1, 1))
	a := mustAccount(t, engine, 1)
	assertAmount(t, "0", a.Available)
	assertAmount(t, "10", a.Held)

	engine.Apply(ref(payments.Resolve, 1, 1))
	a = mustAccount(t, engine, 1)
	assertAmount(t, "10", a.Available)
	assertAmount(t, "0", a.Held)
	assert.False(t, a.Locked)
}

func TestEngine_ChargebackIsTerminal(t *testing.T) {
	// GIVEN: deposit(10) then dispute: available=0, held=10
	// WHEN: The dispute is charged back
	// THEN: The amount leaves both held and available, and the account locks
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "10"))
	engine.Apply(ref(payments.Dispute, 1, 1))

	a := mustAccount(t, engine, 1)
	assertAmount(t, "0", a.Available)
	assertAmount(t, "10", a.Held)

	engine.Apply(ref(payments.Chargeback, 1, 1))

	a = mustAccount(t, engine, 1)
	assertAmount(t, "-10", a.Available)
	assertAmount(t, "0", a.Held)
	assertAmount(t, "-10", a.Total())
	assert.True(t, a.Locked)
}

func TestEngine_ChargebackFromHeldAndAvailableEndsAtZero(t *testing.T) {
	// GIVEN: available=10, held=10 (a second deposit of 10, then a dispute)
	// WHEN: The disputed deposit is charged back
	// THEN: available=0, held=0, locked
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "10"))
	engine.Apply(deposit(1, 2, "10"))
	engine.Apply(ref(payments.Dispute, 1, 1))
	engine.Apply(ref(payments.Chargeback, 1, 1))

	a := mustAccount(t, engine, 1)
	assertAmount(t, "0", a.Available)
	assertAmount(t, "0", a.Held)
	assert.True(t, a.Locked)
}

func TestEngine_DanglingDisputeFamilyIsNoOp(t *testing.T) {
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "10"))

	engine.Apply(ref(payments.Dispute, 1, 2))
	engine.Apply(ref(payments.Resolve, 1, 3))
	engine.Apply(ref(payments.Chargeback, 1, 4))

	a := mustAccount(t, engine, 1)
	assertAmount(t, "10", a.Available)
	assertAmount(t, "0", a.Held)
	assert.False(t, a.Locked)
	assert.Equal(t, 3, engine.Stats().Unresolved)
	assert.Equal(t, 4, engine.Stats().Applied)
}

func TestEngine_DanglingRecordStillCreatesAccount(t *testing.T) {
	engine := newTestEngine()
	engine.Apply(ref(payments.Dispute, 9, 1))

	a := mustAccount(t, engine, 9)
	assert.True(t, a.Total().IsZero())
	assert.False(t, a.Locked)
}

func TestEngine_EndToEndScenario(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Replay(records(
		deposit(1, 1, "1.0"),
		deposit(2, 2, "2.0"),
		ref(payments.Dispute, 1, 1),
		withdrawal(2, 2, "1.0"),
	))
	require.NoError(t, err)

	c1 := mustAccount(t, engine, 1)
	assertAmount(t, "0", c1.Available)
	assertAmount(t, "1.0", c1.Held)
	assertAmount(t, "1.0", c1.Total())
	assert.False(t, c1.Locked)

	c2 := mustAccount(t, engine, 2)
	assertAmount(t, "1.0", c2.Available)
	assertAmount(t, "0", c2.Held)
	assertAmount(t, "1.0", c2.Total())
	assert.False(t, c2.Locked)
}

// =============================================================================
// ORDERING AND INDEXING
// =============================================================================

func TestEngine_DisputeBeforeDepositIsDangling(t *testing.T) {
	// GIVEN: A dispute that arrives before the deposit it names
	// THEN: It is dropped, and the later deposit is applied normally
	engine := newTestEngine()
	engine.Apply(ref(payments.Dispute, 1, 1))
	engine.Apply(deposit(1, 1, "5"))

	a := mustAccount(t, engine, 1)
	assertAmount(t, "5", a.Available)
	assertAmount(t, "0", a.Held)
}

func TestEngine_ReusedTxIDOverwritesIndex(t *testing.T) {
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "5"))
	engine.Apply(deposit(1, 1, "2"))
	engine.Apply(ref(payments.Dispute, 1, 1))

	a := mustAccount(t, engine, 1)
	assertAmount(t, "5", a.Available)
	assertAmount(t, "2", a.Held)
}

func TestEngine_DisputeFamilyIsNotIndexed(t *testing.T) {
	index := store.NewMemory()
	engine := payments.NewEngine(index)
	engine.Apply(deposit(1, 1, "5"))
	engine.Apply(ref(payments.Dispute, 1, 1))
	engine.Apply(ref(payments.Resolve, 1, 1))

	assert.Equal(t, 1, index.Len())
	stored, ok := index.Get(1)
	require.True(t, ok)
	assert.Equal(t, payments.Deposit, stored.Kind)
}

func TestEngine_DisputeAppliesToRecordClientNotReferentClient(t *testing.T) {
	// The account touched is the one named on the dispute row.
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "5"))
	engine.Apply(ref(payments.Dispute, 2, 1))

	assertAmount(t, "5", mustAccount(t, engine, 1).Available)

	c2 := mustAccount(t, engine, 2)
	assertAmount(t, "-5", c2.Available)
	assertAmount(t, "5", c2.Held)
}

func TestEngine_RepeatedDisputesHoldAgain(t *testing.T) {
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "5"))
	engine.Apply(ref(payments.Dispute, 1, 1))
	engine.Apply(ref(payments.Dispute, 1, 1))

	a := mustAccount(t, engine, 1)
	assertAmount(t, "-5", a.Available)
	assertAmount(t, "10", a.Held)
}

func TestEngine_LockedAccountKeepsMoving(t *testing.T) {
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "10"))
	engine.Apply(ref(payments.Dispute, 1, 1))
	engine.Apply(ref(payments.Chargeback, 1, 1))
	engine.Apply(deposit(1, 2, "3"))

	a := mustAccount(t, engine, 1)
	assertAmount(t, "-7", a.Available)
	assertAmount(t, "0", a.Held)
	assert.True(t, a.Locked)
}

// =============================================================================
// REPLAY ERROR POLICY
// =============================================================================

func TestEngine_ReplaySkipsMalformedRecords(t *testing.T) {
	src := &sliceSource{items: []sourceItem{
		{tx: deposit(1, 1, "1")},
		{err: payments.NewMalformedRecordError(3, errors.New("bad client"))},
		{err: payments.NewMalformedRecordError(4, &payments.InvalidKindError{Raw: "refund"})},
		{tx: deposit(1, 2, "2")},
	}}

	engine := newTestEngine()
	stats, err := engine.Replay(src)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, 2, stats.Skipped)
	assertAmount(t, "3", mustAccount(t, engine, 1).Available)
}

func TestEngine_ReplayAbortsOnSourceFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	src := &sliceSource{items: []sourceItem{
		{tx: deposit(1, 1, "1")},
		{err: boom},
		{tx: deposit(1, 2, "2")},
	}}

	engine := newTestEngine()
	stats, err := engine.Replay(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, stats.Applied)
	assertAmount(t, "1", mustAccount(t, engine, 1).Available)
}

func TestEngine_ReplayEmptySource(t *testing.T) {
	engine := newTestEngine()
	stats, err := engine.Replay(records())
	require.NoError(t, err)
	assert.Equal(t, payments.Stats{}, stats)
	assert.Empty(t, engine.Accounts())
	assert.Empty(t, engine.Snapshot())
}

// =============================================================================
// OUTPUT
// =============================================================================

func TestEngine_AccountsAreCopies(t *testing.T) {
	engine := newTestEngine()
	engine.Apply(deposit(1, 1, "1"))

	accounts := engine.Accounts()
	a := accounts[1]
	a.Locked = true
	accounts[1] = a

	assert.False(t, mustAccount(t, engine, 1).Locked)
}

func TestEngine_SnapshotSortedByClient(t *testing.T) {
	engine := newTestEngine()
	for _, c := range []payments.ClientID{5, 1, 65535, 3} {
		engine.Apply(deposit(c, payments.TxID(c), "1"))
	}

	snapshot := engine.Snapshot()
	require.Len(t, snapshot, 4)
	assert.Equal(t, payments.ClientID(1), snapshot[0].Client)
	assert.Equal(t, payments.ClientID(3), snapshot[1].Client)
	assert.Equal(t, payments.ClientID(5), snapshot[2].Client)
	assert.Equal(t, payments.ClientID(65535), snapshot[3].Client)
}

func TestSinks_FanOutStopsAtFirstError(t *testing.T) {
	first := &recordingSink{}
	failing := &recordingSink{err: errors.New("nope")}
	never := &recordingSink{}

	accounts := []payments.Account{*payments.NewAccount(1)}
	err := payments.Sinks{first, failing, never}.WriteAccounts(context.Background(), accounts)

	require.Error(t, err)
	assert.Len(t, first.got, 1)
	assert.Len(t, failing.got, 1)
	assert.Nil(t, never.got)
}
