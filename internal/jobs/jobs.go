// Package jobs runs batch validations in the background and tracks their
// state until a client asks for it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/optimode/emailvalidator/batch"
	"github.com/optimode/emailvalidator/internal/metrics"
)

// State is the lifecycle position of a job.
type State string

const (
	StatePending  State = "PENDING"
	StateProgress State = "PROGRESS"
	StateSuccess  State = "SUCCESS"
	StateFailure  State = "FAILURE"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("job manager is closed")
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrDuplicateID is returned by Submit for an ID already in use.
	ErrDuplicateID = errors.New("job id already in use")
)

// Result describes a successful job.
type Result struct {
	Status         string `json:"status"`
	TotalProcessed int    `json:"total_processed"`
	OutputFile     string `json:"output_file"`
	Valid          int    `json:"valid"`
	Invalid        int    `json:"invalid"`
	Unconfirmed    int    `json:"unconfirmed"`
}

// Status is a snapshot of one job.
type Status struct {
	JobID   string
	State   State
	Status  string // human readable; the error message on failure
	Current int
	Total   int
	Result  *Result
}

// Request is a job to run.
type Request struct {
	Job    batch.Job
	Source batch.Source
	// Input is removed once the job ends, whatever the outcome. Optional.
	Input string
}

// Runner runs one batch job. Implemented by *batch.Runner.
type Runner interface {
	Run(ctx context.Context, job batch.Job, src batch.Source, sink batch.Sink) (*batch.Output, error)
}

// Saver persists a job's output and returns where it went.
// Implemented by *store.Local.
type Saver interface {
	Save(ctx context.Context, out *batch.Output) (string, error)
}

// Config configures a Manager.
type Config struct {
	Workers   int // jobs running at once. Default: 2
	QueueSize int // jobs waiting for a worker. Default: 128
}

// Manager queues jobs onto a fixed pool of workers.
type Manager struct {
	runner  Runner
	saver   Saver
	metrics *metrics.Collector
	logger  *slog.Logger
	cfg     Config

	queue chan Request
	wg    sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*Status
	closed bool
}

// New creates a manager. Call Start to begin processing. A nil collector
// or logger is allowed.
func New(runner Runner, saver Saver, m *metrics.Collector, cfg Config, logger *slog.Logger) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		runner:  runner,
		saver:   saver,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		queue:   make(chan Request, cfg.QueueSize),
		jobs:    make(map[string]*Status),
	}
}

// NewID returns a fresh job ID.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Start launches the workers. Jobs run under ctx; cancelling it fails the
// running jobs.
func (m *Manager) Start(ctx context.Context) {
	for range m.cfg.Workers {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for req := range m.queue {
				m.run(ctx, req)
			}
		}()
	}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Submit queues a job. The job is visible as PENDING until a worker
// picks it up.
func (m *Manager) Submit(req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.jobs[req.Job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, req.Job.ID)
	}
	select {
	case m.queue <- req:
	default:
		return ErrQueueFull
	}
	m.jobs[req.Job.ID] = &Status{JobID: req.Job.ID, State: StatePending, Status: "Task is pending..."}
	return nil
}

// Status returns a snapshot of the job. ok is false for unknown IDs.
func (m *Manager) Status(id string) (st Status, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.jobs[id]
	if !ok {
		return Status{}, false
	}
	st = *s
	if s.Result != nil {
		r := *s.Result
		st.Result = &r
	}
	return st, true
}

func (m *Manager) update(id string, fn func(*Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.jobs[id]; ok {
		fn(s)
	}
}

func (m *Manager) run(ctx context.Context, req Request) {
	log := m.logger.With("job_id", req.Job.ID)
	m.metrics.JobStarted()

	sink := &jobSink{m: m, id: req.Job.ID}
	out, err := m.runner.Run(ctx, req.Job, req.Source, sink)
	m.removeInput(log, req.Input)
	if err != nil {
		log.Error("job failed", "error", err)
		m.metrics.JobFailed(err.Error())
		m.update(req.Job.ID, func(s *Status) {
			s.State = StateFailure
			s.Status = err.Error()
		})
		return
	}

	m.metrics.JobSucceeded(out.Stats.Valid, out.Stats.Invalid, out.Stats.Unconfirmed)
	m.update(req.Job.ID, func(s *Status) {
		s.State = StateSuccess
		s.Status = "Task completed successfully"
		s.Current, s.Total = out.Stats.Total, out.Stats.Total
		s.Result = &Result{
			Status:         string(StateSuccess),
			TotalProcessed: out.Stats.Total,
			OutputFile:     sink.path,
			Valid:          out.Stats.Valid,
			Invalid:        out.Stats.Invalid,
			Unconfirmed:    out.Stats.Unconfirmed,
		}
	})
	log.Info("job completed", "output", sink.path, "valid", out.Stats.Valid, "invalid", out.Stats.Invalid)
}

func (m *Manager) removeInput(log *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not remove input", "path", path, "error", err)
	}
}

// jobSink feeds runner callbacks into the manager's state table.
type jobSink struct {
	m    *Manager
	id   string
	path string
}

func (s *jobSink) ReportProgress(p batch.Progress) {
	s.m.update(s.id, func(st *Status) {
		st.State = StateProgress
		st.Status = p.Message
		st.Current, st.Total = p.Processed, p.Total
	})
}

func (s *jobSink) ReportCompletion(ctx context.Context, out *batch.Output) error {
	path, err := s.m.saver.Save(ctx, out)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	s.path = path
	return nil
}
