// Package report renders account snapshots for people rather than programs.
package report

import (
	"context"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/warp/payments-engine/csvio"
	"github.com/warp/payments-engine/payments"
)

// Table is a payments.Sink that prints an aligned text table with the same
// columns as the CSV output.
type Table struct {
	w io.Writer
}

func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

func (t *Table) WriteAccounts(_ context.Context, accounts []payments.Account) error {
	sorted := append([]payments.Account(nil), accounts...)
	payments.SortByClient(sorted)

	table := tablewriter.NewWriter(t.w)
	table.SetHeader(csvio.OutputHeader)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, a := range sorted {
		table.Append(csvio.Row(a))
	}
	table.Render()
	return nil
}
