/*
main.go - HTTP server entry point

PURPOSE:
  Serves the replay engine over HTTP. Handles configuration, optional
  snapshot export and graceful shutdown.

STARTUP SEQUENCE:
  1. Read environment, apply command-line flags, validate
  2. Open export sinks (SQLite / PostgreSQL) if configured
  3. Create API handler and router
  4. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: $PAYMENTS_PORT or 8080)
  -sqlite    Export every replay result to this SQLite database
  -postgres  Export every replay result to this PostgreSQL URL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close export sinks
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payments-engine/api"
	"github.com/warp/payments-engine/config"
	"github.com/warp/payments-engine/payments"
	"github.com/warp/payments-engine/store/postgres"
	"github.com/warp/payments-engine/store/sqlite"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	sqlitePath := flag.String("sqlite", cfg.SQLitePath, "SQLite export database path")
	postgresURL := flag.String("postgres", cfg.PostgresURL, "PostgreSQL export URL")
	flag.Parse()

	cfg.Port = *port
	cfg.SQLitePath = *sqlitePath
	cfg.PostgresURL = *postgresURL
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Export sinks
	var export payments.Sinks
	if cfg.SQLitePath != "" {
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		export = append(export, db)
	}
	if cfg.PostgresURL != "" {
		pg, err := postgres.Open(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pg.Close()
		export = append(export, pg)
	}

	var sink payments.Sink
	if len(export) > 0 {
		sink = export
	}
	handler := api.NewHandler(logger, cfg.MaxBodyBytes, sink)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
