/*
Package postgres provides a PostgreSQL export sink for account snapshots.

Same contract as store/sqlite: every WriteAccounts call stores one complete
run under a fresh run id, inside a single database transaction. Balances use
NUMERIC columns.
*/
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warp/payments-engine/payments"
)

const schema = `
CREATE TABLE IF NOT EXISTS replay_runs (
	id UUID PRIMARY KEY,
	account_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS account_snapshots (
	run_id UUID NOT NULL REFERENCES replay_runs(id),
	client INTEGER NOT NULL,
	available NUMERIC NOT NULL,
	held NUMERIC NOT NULL,
	total NUMERIC NOT NULL,
	locked BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, client)
);
`

// Store implements payments.Sink on a pgx pool.
type Store struct {
	Pool *pgxpool.Pool
}

// Open connects to databaseURL and makes sure the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{Pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

// WriteAccounts implements payments.Sink.
func (s *Store) WriteAccounts(ctx context.Context, accounts []payments.Account) error {
	_, err := s.WriteRun(ctx, accounts)
	return err
}

// WriteRun stores accounts as a new run and returns its id.
func (s *Store) WriteRun(ctx context.Context, accounts []payments.Account) (uuid.UUID, error) {
	runID := uuid.New()

	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO replay_runs (id, account_count) VALUES ($1, $2)`,
			runID.String(), len(accounts),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		batch := &pgx.Batch{}
		for _, a := range accounts {
			batch.Queue(`
				INSERT INTO account_snapshots (run_id, client, available, held, total, locked)
				VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)`,
				runID.String(),
				int32(a.Client),
				payments.FormatAmount(a.Available),
				payments.FormatAmount(a.Held),
				payments.FormatAmount(a.Total()),
				a.Locked,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return runID, nil
}

// CountSnapshots returns the number of accounts stored for a run.
func (s *Store) CountSnapshots(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx,
		`SELECT count(*) FROM account_snapshots WHERE run_id = $1`, runID.String(),
	).Scan(&n)
	return n, err
}
