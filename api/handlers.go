/*
handlers.go - HTTP API handlers for the replay engine

PURPOSE:
  Exposes the replay engine over HTTP. A client posts a complete
  transaction log as CSV and receives the resulting account snapshots.

ENDPOINTS:
  POST /api/replay   Replay a CSV log (body), return accounts
  GET  /api/health   Liveness check

CONTENT NEGOTIATION:
  Accept: application/json  -> ReplayResponse
  anything else             -> text/csv (client,available,held,total,locked)

ISOLATION:
  Each request replays through its own engine and index. Nothing carries
  over between requests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: The log could not be read (bad header, broken stream)
  - 413: The log exceeds the configured size limit
  - 500: The export sink failed

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/warp/payments-engine/csvio"
	"github.com/warp/payments-engine/payments"
	"github.com/warp/payments-engine/payments/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the dependencies of the HTTP layer.
type Handler struct {
	Logger       *slog.Logger
	MaxBodyBytes int64

	// Export, when set, receives a copy of every replay result.
	Export payments.Sink
}

// NewHandler creates a handler. A nil logger falls back to slog.Default().
func NewHandler(logger *slog.Logger, maxBodyBytes int64, export payments.Sink) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Logger: logger, MaxBodyBytes: maxBodyBytes, Export: export}
}

// =============================================================================
// REPLAY ENDPOINT
// =============================================================================

// Replay runs the posted log through a fresh engine.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	engine := payments.NewEngine(store.NewMemory(), payments.WithLogger(h.Logger))
	stats, err := engine.Replay(csvio.NewReader(body))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "transaction log too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read transaction log", err)
		return
	}

	accounts := engine.Snapshot()
	h.Logger.Info("replay complete",
		"accounts", len(accounts),
		"applied", stats.Applied,
		"skipped", stats.Skipped,
		"unresolved", stats.Unresolved,
	)

	if h.Export != nil {
		if err := h.Export.WriteAccounts(r.Context(), accounts); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to export snapshot", err)
			return
		}
	}

	if wantsJSON(r) {
		resp := ReplayResponse{
			Accounts: make([]AccountDTO, 0, len(accounts)),
			Stats: StatsDTO{
				Applied:    stats.Applied,
				Skipped:    stats.Skipped,
				Unresolved: stats.Unresolved,
			},
		}
		for _, a := range accounts {
			resp.Accounts = append(resp.Accounts, toAccountDTO(a))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	if err := csvio.NewWriter(w).WriteAccounts(r.Context(), accounts); err != nil {
		h.Logger.Error("failed to write response", "error", err)
	}
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
