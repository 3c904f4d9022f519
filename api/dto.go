/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  JSON shapes returned by the replay endpoint. Decimals are rendered as
  strings at their natural precision so clients never see floats.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/payments-engine/payments"
)

// AccountDTO represents an account snapshot in API responses.
type AccountDTO struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// StatsDTO mirrors payments.Stats.
type StatsDTO struct {
	Applied    int `json:"applied"`
	Skipped    int `json:"skipped"`
	Unresolved int `json:"unresolved"`
}

// ReplayResponse is returned for JSON replay requests.
type ReplayResponse struct {
	Accounts []AccountDTO `json:"accounts"`
	Stats    StatsDTO     `json:"stats"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAccountDTO(a payments.Account) AccountDTO {
	return AccountDTO{
		Client:    uint16(a.Client),
		Available: payments.FormatAmount(a.Available),
		Held:      payments.FormatAmount(a.Held),
		Total:     payments.FormatAmount(a.Total()),
		Locked:    a.Locked,
	}
}
