/*
Package sqlite provides a SQLite-backed export sink for account snapshots.

PURPOSE:
  Writes the final accounts of a replay into a database so they can be
  inspected with SQL. Every call stores a complete, separate run tagged
  with a fresh run id. Nothing is ever read back into a replay: each
  replay still starts from an empty engine.

KEY TABLES:
  replay_runs:        One row per exported replay
  account_snapshots:  One row per (run, client)

DECIMALS:
  Balances are stored as TEXT at their natural precision, so "1.0" comes
  back as "1.0" and no binary floating point is involved.

USAGE:
  store, err := sqlite.New("./snapshots.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  runID, err := store.WriteRun(ctx, engine.Snapshot())

SEE ALSO:
  - store/postgres/postgres.go: Same contract on PostgreSQL
  - payments/engine.go: Sink interface
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payments-engine/payments"
)

// timeLayout is fixed width so created_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements payments.Sink using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Run describes one exported replay.
type Run struct {
	ID        string
	CreatedAt time.Time
	Accounts  int
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
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
	CREATE TABLE IF NOT EXISTS replay_runs (
		id TEXT PRIMARY KEY,
		account_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS account_snapshots (
		run_id TEXT NOT NULL REFERENCES replay_runs(id),
		client INTEGER NOT NULL,
		available TEXT NOT NULL,
		held TEXT NOT NULL,
		total TEXT NOT NULL,
		locked INTEGER NOT NULL,
		PRIMARY KEY (run_id, client)
	);

	CREATE INDEX IF NOT EXISTS idx_account_snapshots_client
		ON account_snapshots(client);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SINK
// =============================================================================

// WriteAccounts implements payments.Sink.
func (s *Store) WriteAccounts(ctx context.Context, accounts []payments.Account) error {
	_, err := s.WriteRun(ctx, accounts)
	return err
}

// WriteRun stores accounts as a new run atomically and returns its id.
func (s *Store) WriteRun(ctx context.Context, accounts []payments.Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO replay_runs (id, account_count, created_at) VALUES (?, ?, ?)`,
		runID, len(accounts), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO account_snapshots (run_id, client, available, held, total, locked)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range accounts {
		_, err := stmt.ExecContext(ctx,
			runID,
			int64(a.Client),
			payments.FormatAmount(a.Available),
			payments.FormatAmount(a.Held),
			payments.FormatAmount(a.Total()),
			a.Locked,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert snapshot for client %d: %w", a.Client, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// ListRuns returns exported runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_count, created_at FROM replay_runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Accounts, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadRun returns the accounts of one run ordered by client.
func (s *Store) LoadRun(ctx context.Context, runID string) ([]payments.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client, available, held, locked
		FROM account_snapshots
		WHERE run_id = ?
		ORDER BY client
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []payments.Account
	for rows.Next() {
		var (
			client          int64
			available, held string
			locked          bool
		)
		if err := rows.Scan(&client, &available, &held, &locked); err != nil {
			return nil, err
		}
		a := payments.Account{Client: payments.ClientID(client), Locked: locked}
		if a.Available, err = decimal.NewFromString(available); err != nil {
			return nil, fmt.Errorf("client %d available: %w", client, err)
		}
		if a.Held, err = decimal.NewFromString(held); err != nil {
			return nil, fmt.Errorf("client %d held: %w", client, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
