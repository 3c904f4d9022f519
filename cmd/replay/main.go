/*
main.go - Command-line replay

PURPOSE:
  Replays one CSV transaction log and prints the final account of every
  client to standard output.

USAGE:
  replay [flags] <transactions.csv>

COMMAND-LINE FLAGS:
  -format     Output format: csv or table (default: $PAYMENTS_FORMAT or csv)
  -sqlite     Also export the snapshot to this SQLite database
  -postgres   Also export the snapshot to this PostgreSQL URL
  -log-level  debug, info, warn or error (logs go to stderr)

EXIT STATUS:
  0 on success, 1 when the input cannot be opened or read, 2 on bad usage.
  Malformed rows are skipped with a warning and do not change the status.

EXAMPLES:
  replay transactions.csv > accounts.csv
  replay -format=table transactions.csv
  PAYMENTS_SQLITE_PATH=./runs.db replay transactions.csv

SEE ALSO:
  - csvio/reader.go: Input format
  - payments/engine.go: Replay semantics
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/warp/payments-engine/config"
	"github.com/warp/payments-engine/csvio"
	"github.com/warp/payments-engine/payments"
	"github.com/warp/payments-engine/payments/store"
	"github.com/warp/payments-engine/report"
	"github.com/warp/payments-engine/store/postgres"
	"github.com/warp/payments-engine/store/sqlite"
)

var errUsage = errors.New("usage: replay [flags] <transactions.csv>")

func main() {
	log.SetFlags(0)
	log.SetPrefix("replay: ")

	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", cfg.Format, "output format: csv or table")
	sqlitePath := fs.String("sqlite", cfg.SQLitePath, "export snapshot to this SQLite database")
	postgresURL := fs.String("postgres", cfg.PostgresURL, "export snapshot to this PostgreSQL URL")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	cfg.Format = *format
	cfg.SQLitePath = *sqlitePath
	cfg.PostgresURL = *postgresURL
	cfg.LogLevel = *logLevel
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var out payments.Sink
	switch cfg.Format {
	case "csv":
		out = csvio.NewWriter(stdout)
	case "table":
		out = report.NewTable(stdout)
	default:
		return fmt.Errorf("unsupported output format %q", cfg.Format)
	}

	file, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	engine := payments.NewEngine(store.NewMemory(), payments.WithLogger(logger))
	stats, err := engine.Replay(csvio.NewReader(file))
	if err != nil {
		return err
	}
	logger.Debug("replay complete",
		"applied", stats.Applied, "skipped", stats.Skipped, "unresolved", stats.Unresolved)

	sinks := payments.Sinks{out}
	if cfg.SQLitePath != "" {
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}
	if cfg.PostgresURL != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		sinks = append(sinks, pg)
	}

	return sinks.WriteAccounts(ctx, engine.Snapshot())
}
