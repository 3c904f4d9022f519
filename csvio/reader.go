/*
Package csvio reads transaction logs and writes account snapshots as CSV.

INPUT FORMAT:
  type,client,tx,amount
  deposit,1,1,1.0
  dispute,1,1,

  - Columns are located by header name, so their order may vary
  - Whitespace around numeric fields is ignored
  - An empty or missing amount means "no amount supplied", not zero
  - The type tag must match exactly (deposit, withdrawal, dispute,
    resolve, chargeback)

OUTPUT FORMAT:
  client,available,held,total,locked
  1,0.0,1.0,1.0,false

ERRORS:
  A row that cannot be parsed yields an error wrapping
  payments.ErrMalformedRecord; the engine skips it. Failures of the
  underlying reader are returned unwrapped and abort the replay.

SEE ALSO:
  - payments/engine.go: Consumes Reader as a payments.Source
*/
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/warp/payments-engine/payments"
)

// Header names of the input log.
const (
	ColType   = "type"
	ColClient = "client"
	ColTx     = "tx"
	ColAmount = "amount"
)

// Reader is a payments.Source over a CSV transaction log.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	started bool
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Next returns the next record, or io.EOF at the end of the input.
func (r *Reader) Next() (payments.Transaction, error) {
	if !r.started {
		if err := r.readHeader(); err != nil {
			return payments.Transaction{}, err
		}
		r.started = true
	}

	record, err := r.csv.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return payments.Transaction{}, payments.NewMalformedRecordError(parseErr.Line, err)
		}
		return payments.Transaction{}, err
	}

	line, _ := r.csv.FieldPos(0)
	tx, err := r.parse(record)
	if err != nil {
		return payments.Transaction{}, payments.NewMalformedRecordError(line, err)
	}
	return tx, nil
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return err
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	r.columns = make(map[string]int, len(header))
	for i, name := range header {
		r.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{ColType, ColClient, ColTx} {
		if _, ok := r.columns[required]; !ok {
			return fmt.Errorf("csv header: missing %q column", required)
		}
	}
	return nil
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (r *Reader) parse(record []string) (payments.Transaction, error) {
	kind, err := payments.ParseKind(r.field(record, ColType))
	if err != nil {
		return payments.Transaction{}, err
	}

	client, err := strconv.ParseUint(strings.TrimSpace(r.field(record, ColClient)), 10, 16)
	if err != nil {
		return payments.Transaction{}, fmt.Errorf("client: %w", err)
	}

	txID, err := strconv.ParseUint(strings.TrimSpace(r.field(record, ColTx)), 10, 32)
	if err != nil {
		return payments.Transaction{}, fmt.Errorf("tx: %w", err)
	}

	amount, err := payments.ParseAmount(strings.TrimSpace(r.field(record, ColAmount)))
	if err != nil {
		return payments.Transaction{}, fmt.Errorf("amount: %w", err)
	}

	return payments.Transaction{
		Kind:   kind,
		Client: payments.ClientID(client),
		Tx:     payments.TxID(txID),
		Amount: amount,
	}, nil
}
