package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/optimode/emailvalidator/batch"
	"github.com/optimode/emailvalidator/internal/config"
	"github.com/optimode/emailvalidator/internal/csvio"
	"github.com/optimode/emailvalidator/internal/jobs"
	"github.com/optimode/emailvalidator/internal/mboxsource"
	"github.com/optimode/emailvalidator/internal/metrics"
	"github.com/optimode/emailvalidator/internal/server"
	"github.com/optimode/emailvalidator/internal/store"
)

// ── validate ─────────────────────────────────────────────────────────

// sourceFor picks the reader for a path: a directory of mailboxes, an
// mbox file or a CSV file.
func sourceFor(path string) (batch.Source, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", usageError("validate: %v", err)
	}
	base := filepath.Base(path)
	if info.IsDir() {
		return mboxsource.Dir{Path: path}, base, nil
	}
	ext := strings.ToLower(filepath.Ext(base))
	id := strings.TrimSuffix(base, filepath.Ext(base))
	switch ext {
	case ".csv":
		return csvio.File{Path: path}, id, nil
	case ".mbox":
		return mboxsource.File{Path: path}, id, nil
	default:
		return nil, "", usageError("validate: %s: only CSV or mbox files are supported", path)
	}
}

// progressSink prints progress to w and stores the output.
type progressSink struct {
	w     io.Writer
	store *store.Local
	path  string
}

func (s *progressSink) ReportProgress(p batch.Progress) {
	_, _ = fmt.Fprintln(s.w, p.Message)
}

func (s *progressSink) ReportCompletion(ctx context.Context, out *batch.Output) error {
	path, err := s.store.Save(ctx, out)
	if err != nil {
		return err
	}
	s.path = path
	return nil
}

func (a *App) validate(ctx context.Context, cfg *config.Config, logger *slog.Logger, path string) error {
	src, id, err := sourceFor(path)
	if err != nil {
		return err
	}
	v, err := a.buildValidator(cfg, logger)
	if err != nil {
		return usageError("%v", err)
	}
	st, err := store.NewLocal(cfg.OutputDir)
	if err != nil {
		return err
	}

	runner := batch.NewRunner(v, batch.Config{
		Column:        cfg.Column,
		ProgressEvery: cfg.ProgressEvery,
		Workers:       cfg.Workers,
	}, logger)
	sink := &progressSink{w: a.Stderr, store: st}

	out, err := runner.Run(ctx, batch.Job{ID: id, Detailed: cfg.Detailed}, src, sink)
	if err != nil {
		return err
	}

	s := out.Stats
	_, _ = fmt.Fprintf(a.Stdout, "%d addresses: %d valid, %d invalid", s.Total, s.Valid, s.Invalid)
	if s.Unconfirmed > 0 {
		_, _ = fmt.Fprintf(a.Stdout, " (%d valid without SMTP confirmation)", s.Unconfirmed)
	}
	_, _ = fmt.Fprintf(a.Stdout, "\nresults: %s\n", sink.path)
	return nil
}

// ── check ────────────────────────────────────────────────────────────

func (a *App) check(ctx context.Context, cfg *config.Config, logger *slog.Logger, addresses []string) error {
	v, err := a.buildValidator(cfg, logger)
	if err != nil {
		return usageError("%v", err)
	}
	records, err := v.ValidateMany(ctx, addresses)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.Stdout)
	enc.SetEscapeHTML(false)
	invalid := 0
	for _, rec := range records {
		if !rec.Valid {
			invalid++
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	if invalid > 0 {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d addresses invalid", invalid, len(records))}
	}
	return nil
}

// ── serve ────────────────────────────────────────────────────────────

func (a *App) serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	v, err := a.buildValidator(cfg, logger)
	if err != nil {
		return usageError("%v", err)
	}
	st, err := store.NewLocal(cfg.OutputDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload directory %s: %w", cfg.UploadDir, err)
	}

	col := metrics.New()
	runner := batch.NewRunner(v, batch.Config{
		Column:        cfg.Column,
		ProgressEvery: cfg.ProgressEvery,
		Workers:       cfg.Workers,
	}, logger)
	mgr := jobs.New(runner, st, col, jobs.Config{Workers: cfg.JobWorkers}, logger)
	mgr.Start(ctx)
	defer mgr.Close()

	srv := server.New(mgr, st, col, server.Config{
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
	}, logger)
	return srv.ListenAndServe(ctx, cfg.Listen)
}
