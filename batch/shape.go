package batch

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/optimode/emailvalidator"
)

// DetailedColumns is the header of the detailed output.
var DetailedColumns = []string{"email", "is_valid", "format_valid", "domain_valid", "smtp_valid", "errors"}

// ValidColumn is the column appended to the input in simple output.
const ValidColumn = "valid"

// simpleTable copies the input and sets the verdict in a "valid" column,
// appending the column unless the input already has one.
func simpleTable(in *Table, records []emailvalidator.Record) *Table {
	cols := append([]string(nil), in.Columns...)
	validIdx := in.Column(ValidColumn)
	if validIdx < 0 {
		validIdx = len(cols)
		cols = append(cols, ValidColumn)
	}

	out := &Table{Columns: cols, Rows: make([][]string, len(in.Rows))}
	for i, row := range in.Rows {
		cells := make([]string, len(cols))
		copy(cells, row)
		cells[validIdx] = strconv.FormatBool(records[i].Valid)
		out.Rows[i] = cells
	}
	return out
}

// detailedTable has one row per record with every stage flag.
func detailedTable(records []emailvalidator.Record) *Table {
	out := &Table{
		Columns: append([]string(nil), DetailedColumns...),
		Rows:    make([][]string, len(records)),
	}
	for i, rec := range records {
		out.Rows[i] = []string{
			rec.Email,
			strconv.FormatBool(rec.Valid),
			strconv.FormatBool(rec.FormatValid),
			strconv.FormatBool(rec.DomainValid),
			strconv.FormatBool(rec.SMTPValid),
			encodeErrors(rec.Errors),
		}
	}
	return out
}

// encodeErrors renders diagnostics as a JSON array, e.g. ["domain does not exist"].
func encodeErrors(errs []string) string {
	if len(errs) == 0 {
		return "[]"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(errs); err != nil {
		return "[]"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// DecodeErrors parses the errors cell of a detailed row.
func DecodeErrors(cell string) ([]string, error) {
	var errs []string
	if cell == "" {
		return errs, nil
	}
	if err := json.Unmarshal([]byte(cell), &errs); err != nil {
		return nil, err
	}
	return errs, nil
}
