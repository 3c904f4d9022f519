/*
engine.go - The replay fold

PURPOSE:
  Consumes records in order and folds them into a map of accounts. This is
  a strict left-to-right fold: each record is fully applied before the next
  one is read.

PER-RECORD ALGORITHM:
  1. Link dispute-family records against the current index
  2. Store money-movement records in the index (before applying them)
  3. Look up or lazily create the client's account
  4. Apply the record to the account

FAILURE SEMANTICS:
  Apply is total and never fails. Replay skips records whose source error
  wraps ErrMalformedRecord and aborts on any other source error.

OWNERSHIP:
  The account map and the index belong to one Engine. Use a fresh Engine
  (and a fresh Index) for every run. An Engine is not safe for concurrent
  use.

SEE ALSO:
  - link.go: Step 1
  - account.go: Step 4
  - csvio/reader.go: The usual Source
*/
package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Source yields parsed records one at a time. It returns io.EOF when the
// input is exhausted.
type Source interface {
	Next() (Transaction, error)
}

// Sink consumes the final account snapshots.
type Sink interface {
	WriteAccounts(ctx context.Context, accounts []Account) error
}

// Sinks fans a snapshot out to several sinks in order, stopping at the
// first failure.
type Sinks []Sink

func (s Sinks) WriteAccounts(ctx context.Context, accounts []Account) error {
	for _, sink := range s {
		if err := sink.WriteAccounts(ctx, accounts); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes a replay.
type Stats struct {
	Applied    int // records applied to an account
	Skipped    int // malformed records dropped by Replay
	Unresolved int // dispute-family records with no referent (no-ops)
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	index    Index
	accounts map[ClientID]*Account
	stats    Stats

	logger   *slog.Logger
	observer func(Account)
}

type Option func(*Engine)

// WithLogger sets the logger used for skipped and unresolved records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers fn to be called with a copy of the account after
// every applied record.
func WithObserver(fn func(Account)) Option {
	return func(e *Engine) { e.observer = fn }
}

// NewEngine creates an engine around an empty index.
func NewEngine(index Index, opts ...Option) *Engine {
	e := &Engine{
		index:    index,
		accounts: make(map[ClientID]*Account),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply replays a single record.
func (e *Engine) Apply(tx Transaction) {
	tx = Link(tx, e.index)
	if tx.IsMoneyMovement() {
		e.index.Put(tx)
	}

	account, ok := e.accounts[tx.Client]
	if !ok {
		account = NewAccount(tx.Client)
		e.accounts[tx.Client] = account
	}

	if tx.IsDisputeFamily() && !tx.Linked() {
		e.stats.Unresolved++
		e.logger.Debug("dispute-family record ignored",
			"kind", tx.Kind, "client", tx.Client, "tx", tx.Tx, "reason", ErrUnresolvedReference)
	}

	account.Apply(tx)
	e.stats.Applied++

	if e.observer != nil {
		e.observer(*account)
	}
}

// Replay drains src into the engine.
func (e *Engine) Replay(src Source) (Stats, error) {
	for {
		tx, err := src.Next()
		if errors.Is(err, io.EOF) {
			return e.stats, nil
		}
		if err != nil {
			if IsSkippable(err) {
				e.stats.Skipped++
				e.logger.Warn("skipping record", "error", err)
				continue
			}
			return e.stats, fmt.Errorf("read record: %w", err)
		}
		e.Apply(tx)
	}
}

func (e *Engine) Stats() Stats { return e.stats }

// Account returns the current state for client.
func (e *Engine) Account(client ClientID) (Account, bool) {
	a, ok := e.accounts[client]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Accounts hands back every account, keyed by client. Order is unspecified.
func (e *Engine) Accounts() map[ClientID]Account {
	result := make(map[ClientID]Account, len(e.accounts))
	for id, a := range e.accounts {
		result[id] = *a
	}
	return result
}

// Snapshot returns every account sorted by client id.
func (e *Engine) Snapshot() []Account {
	result := make([]Account, 0, len(e.accounts))
	for _, a := range e.accounts {
		result = append(result, *a)
	}
	SortByClient(result)
	return result
}
