// Package server exposes batch validation over HTTP: upload a file, poll
// the job, download the result.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/optimode/emailvalidator/batch"
	"github.com/optimode/emailvalidator/internal/csvio"
	"github.com/optimode/emailvalidator/internal/jobs"
	"github.com/optimode/emailvalidator/internal/mboxsource"
	"github.com/optimode/emailvalidator/internal/metrics"
)

//go:embed index.html
var indexHTML []byte

// Jobs is the part of *jobs.Manager the server needs.
type Jobs interface {
	NewID() string
	Submit(req jobs.Request) error
	Status(id string) (jobs.Status, bool)
}

// Results locates stored job output. Implemented by *store.Local.
type Results interface {
	Find(jobID string) (string, error)
}

// Config configures a Server.
type Config struct {
	// UploadDir receives uploaded files until their job ends. Default: os.TempDir()
	UploadDir string
	// MaxUploadBytes limits the request body. Default: 32 MiB
	MaxUploadBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	jobs    Jobs
	results Results
	metrics *metrics.Collector
	cfg     Config
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a server. A nil collector or logger is allowed.
func New(j Jobs, r Results, m *metrics.Collector, cfg Config, logger *slog.Logger) *Server {
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{jobs: j, results: r, metrics: m, cfg: cfg, logger: logger, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/upload/{$}", s.handleUpload)
	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/status/{job_id}", s.handleStatus)
	s.mux.HandleFunc("GET /api/results/{job_id}", s.handleResults)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	return s
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ── Handlers ─────────────────────────────────────────────────────────

type uploadResponse struct {
	JobID   string `json:"job_id"`
	TaskID  string `json:"task_id"` // same as JobID; the job is its own task handle
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	detailed := false
	if v := r.URL.Query().Get("detailed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "detailed must be true or false")
			return
		}
		detailed = b
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".mbox" {
		writeError(w, http.StatusBadRequest, "Only CSV or mbox files are supported")
		return
	}

	id := s.jobs.NewID()
	path := filepath.Join(s.cfg.UploadDir, id+ext)
	if err := saveUpload(path, file); err != nil {
		_ = os.Remove(path)
		s.logger.Error("saving upload failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Error processing file: "+err.Error())
		return
	}

	var src batch.Source = csvio.File{Path: path}
	if ext == ".mbox" {
		src = mboxsource.File{Path: path}
	}
	err = s.jobs.Submit(jobs.Request{Job: batch.Job{ID: id, Detailed: detailed}, Source: src, Input: path})
	if err != nil {
		_ = os.Remove(path)
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "Error processing file: "+err.Error())
		return
	}

	s.logger.Info("job submitted", "job_id", id, "file", header.Filename, "detailed", detailed)
	writeJSON(w, http.StatusOK, uploadResponse{
		JobID:   id,
		TaskID:  id,
		Status:  "processing",
		Message: "File uploaded successfully. Validation in progress.",
	})
}

func saveUpload(path string, src io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type statusResponse struct {
	State    jobs.State   `json:"state"`
	Status   string       `json:"status"`
	Current  *int         `json:"current,omitempty"`
	Total    *int         `json:"total,omitempty"`
	Progress string       `json:"progress,omitempty"`
	Result   *jobs.Result `json:"result,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobs.Status(r.PathValue("job_id"))
	if !ok {
		// Unknown IDs look pending, as a job queued elsewhere would.
		writeJSON(w, http.StatusOK, statusResponse{State: jobs.StatePending, Status: "Task is pending..."})
		return
	}

	resp := statusResponse{State: st.State, Status: st.Status}
	switch st.State {
	case jobs.StateProgress:
		resp.Current, resp.Total = &st.Current, &st.Total
		resp.Progress = fmt.Sprintf("%d/%d", st.Current, st.Total)
	case jobs.StateSuccess:
		resp.Result = st.Result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	path, err := s.results.Find(r.PathValue("job_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Results not found. Job may still be processing.")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

type healthResponse struct {
	Status  string           `json:"status"`
	Service string           `json:"service"`
	Metrics metrics.Snapshot `json:"metrics"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: "email_validator",
		Metrics: s.metrics.Snapshot(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// ── helpers ──────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
