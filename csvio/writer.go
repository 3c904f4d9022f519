package csvio

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/warp/payments-engine/payments"
)

// OutputHeader is the first row written by Writer.
var OutputHeader = []string{"client", "available", "held", "total", "locked"}

// Writer is a payments.Sink that emits one CSV row per account.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteAccounts writes the header followed by the accounts in ascending
// client order. The input slice is not modified.
func (w *Writer) WriteAccounts(_ context.Context, accounts []payments.Account) error {
	sorted := append([]payments.Account(nil), accounts...)
	payments.SortByClient(sorted)

	cw := csv.NewWriter(w.w)
	if err := cw.Write(OutputHeader); err != nil {
		return err
	}
	for _, a := range sorted {
		if err := cw.Write(Row(a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row renders an account in output column order.
func Row(a payments.Account) []string {
	return []string{
		strconv.FormatUint(uint64(a.Client), 10),
		payments.FormatAmount(a.Available),
		payments.FormatAmount(a.Held),
		payments.FormatAmount(a.Total()),
		strconv.FormatBool(a.Locked),
	}
}
