// Package csvio reads and writes batch tables as CSV with a header row.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/optimode/emailvalidator/batch"
)

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csv: missing header row")

// Read parses r into a table. Short rows are padded with empty cells and
// long rows are rejected, so every row has len(Columns) cells.
func Read(r io.Reader) (*batch.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	// Excel writes a UTF-8 byte order mark.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	tbl := &batch.Table{Columns: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("csv: line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		row := make([]string, len(header))
		copy(row, rec)
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// Write writes the header and all rows of t to w.
func Write(w io.Writer, t *batch.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// File is a batch.Source reading a CSV file.
type File struct {
	Path string
}

func (f File) Read(ctx context.Context) (*batch.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	return Read(fh)
}
