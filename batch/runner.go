package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/optimode/emailvalidator"
)

// Config configures a Runner.
type Config struct {
	// Column is the header of the address column. Default: "email"
	Column string
	// ProgressEvery is the progress reporting interval in addresses. Default: 10
	ProgressEvery int
	// Workers bounds concurrent validations within one job. Default: 16
	Workers int
}

const (
	DefaultColumn        = "email"
	DefaultProgressEvery = 10
	DefaultWorkers       = 16
)

// Runner validates whole tables.
type Runner struct {
	validator Validator
	cfg       Config
	logger    *slog.Logger
}

// NewRunner creates a runner. A nil logger discards.
func NewRunner(v Validator, cfg Config, logger *slog.Logger) *Runner {
	if cfg.Column == "" {
		cfg.Column = DefaultColumn
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{validator: v, cfg: cfg, logger: logger}
}

// Run reads the source, validates every address and hands the shaped
// output to the sink. Input errors and cancellation abort the job with
// a *JobError and nothing is passed to ReportCompletion. Per-address
// failures never abort the job; they are part of the records.
func (r *Runner) Run(ctx context.Context, job Job, src Source, sink Sink) (*Output, error) {
	log := r.logger.With("job_id", job.ID)

	tbl, err := src.Read(ctx)
	if err != nil {
		return nil, &JobError{JobID: job.ID, Err: fmt.Errorf("%w: %w", ErrUnreadableSource, err)}
	}
	col := tbl.Column(r.cfg.Column)
	if col < 0 {
		return nil, &JobError{JobID: job.ID, Err: fmt.Errorf("%w: input must contain an %q column", ErrMissingColumn, r.cfg.Column)}
	}

	emails := make([]string, len(tbl.Rows))
	for i, row := range tbl.Rows {
		if col < len(row) {
			emails[i] = row[col]
		}
	}
	log.Info("validating", "total", len(emails), "detailed", job.Detailed)

	progress := newTracker(job.ID, len(emails), r.cfg.ProgressEvery, sink)
	progress.start()

	records, err := r.validator.ValidateMany(ctx, emails, emailvalidator.ConcurrencyOptions{
		Workers:  r.cfg.Workers,
		OnResult: func(int, emailvalidator.Record) { progress.advance() },
	})
	if err != nil {
		log.Warn("validation aborted", "processed", progress.processed, "error", err)
		return nil, &JobError{JobID: job.ID, Err: err}
	}

	out := &Output{Job: job, Records: records, Stats: summarize(records)}
	if job.Detailed {
		out.Table = detailedTable(records)
	} else {
		out.Table = simpleTable(tbl, records)
	}

	if sink != nil {
		if err := sink.ReportCompletion(ctx, out); err != nil {
			return nil, &JobError{JobID: job.ID, Err: fmt.Errorf("report completion: %w", err)}
		}
	}
	log.Info("validation completed",
		"total", out.Stats.Total,
		"valid", out.Stats.Valid,
		"invalid", out.Stats.Invalid,
		"unconfirmed", out.Stats.Unconfirmed)
	return out, nil
}

func summarize(records []emailvalidator.Record) Stats {
	s := Stats{Total: len(records)}
	for _, rec := range records {
		if !rec.Valid {
			s.Invalid++
			continue
		}
		s.Valid++
		if smtp, ok := rec.CheckFor(emailvalidator.StageSMTP); ok && smtp.Outcome == emailvalidator.OutcomeInconclusive {
			s.Unconfirmed++
		}
	}
	return s
}
