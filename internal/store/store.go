// Package store persists job results as CSV files in one directory.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/optimode/emailvalidator/batch"
	"github.com/optimode/emailvalidator/internal/csvio"
)

// ErrNotFound is returned by Find when a job has no stored result.
var ErrNotFound = errors.New("results not found")

// Local stores results under Dir, named after the job.
type Local struct {
	Dir string
}

// NewLocal creates the output directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &Local{Dir: dir}, nil
}

// Save writes the output table of a job. The file appears under its final
// name only once it is complete.
func (s *Local) Save(ctx context.Context, out *batch.Output) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, out.Job.OutputName())

	tmp, err := os.CreateTemp(s.Dir, ".tmp-*.csv")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := csvio.Write(tmp, out.Table); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename to %s: %w", path, err)
	}
	return path, nil
}

// Find returns the result file of a job, preferring the detailed one.
func (s *Local) Find(jobID string) (string, error) {
	if jobID == "" || filepath.Base(jobID) != jobID {
		return "", ErrNotFound
	}
	for _, detailed := range []bool{true, false} {
		path := filepath.Join(s.Dir, batch.Job{ID: jobID, Detailed: detailed}.OutputName())
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}
