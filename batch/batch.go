// Package batch runs the validator over a table of addresses, reports
// progress while doing so and shapes the records into one of two output
// tables: the input with a "valid" column appended, or one detailed row
// per address.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/optimode/emailvalidator"
)

var (
	// ErrUnreadableSource is returned when the input cannot be read.
	ErrUnreadableSource = errors.New("input source could not be read")

	// ErrMissingColumn is returned when the input lacks the address column.
	ErrMissingColumn = errors.New("input is missing the address column")
)

// JobError is a job-level failure. No output is produced when Run
// returns one.
type JobError struct {
	JobID string
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %v", e.JobID, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// Table is a header plus rows of string cells, in input order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Job identifies one batch run.
type Job struct {
	ID       string
	Detailed bool
}

// OutputName is the file name results of this job are stored under.
func (j Job) OutputName() string {
	if j.Detailed {
		return j.ID + "_detailed_validated.csv"
	}
	return j.ID + "_validated.csv"
}

// Source yields the input table.
type Source interface {
	Read(ctx context.Context) (*Table, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Table, error)

func (f SourceFunc) Read(ctx context.Context) (*Table, error) { return f(ctx) }

// Progress is a snapshot of a running job.
type Progress struct {
	JobID     string
	Processed int
	Total     int
	Message   string
}

// Final reports whether every address has been processed.
func (p Progress) Final() bool { return p.Processed == p.Total }

// Output is the result of a successful run.
type Output struct {
	Job     Job
	Table   *Table
	Records []emailvalidator.Record
	Stats   Stats
}

// Stats summarizes the verdicts of a run.
type Stats struct {
	Total   int
	Valid   int
	Invalid int
	// Unconfirmed counts valid addresses whose SMTP probe did not complete.
	Unconfirmed int
}

// Sink consumes progress and the final output of a job.
// ReportProgress is never called concurrently for one job.
// ReportCompletion is called at most once, and only on success.
type Sink interface {
	ReportProgress(p Progress)
	ReportCompletion(ctx context.Context, out *Output) error
}

// Validator is the part of *emailvalidator.Validator the runner needs.
type Validator interface {
	ValidateMany(ctx context.Context, emails []string, opts ...emailvalidator.ConcurrencyOptions) ([]emailvalidator.Record, error)
}
