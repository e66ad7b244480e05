// Package metrics provides lock-free counters for validation jobs.
//
// All methods are safe for concurrent use. A nil *Collector is a valid
// no-op receiver, so callers never need to nil-check.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks job and address counters for one process.
type Collector struct {
	jobsActive    atomic.Int64
	jobsTotal     atomic.Int64
	jobsSucceeded atomic.Int64
	jobsFailed    atomic.Int64

	addresses   atomic.Int64
	valid       atomic.Int64
	invalid     atomic.Int64
	unconfirmed atomic.Int64

	mu          sync.RWMutex
	startTime   time.Time
	lastFailure time.Time
	lastFailMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Jobs ─────────────────────────────────────────────────────────────

// JobStarted increments the active and total job counters.
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}
	c.jobsActive.Add(1)
	c.jobsTotal.Add(1)
}

// JobSucceeded records a finished job and its verdict counts.
func (c *Collector) JobSucceeded(valid, invalid, unconfirmed int) {
	if c == nil {
		return
	}
	c.jobsActive.Add(-1)
	c.jobsSucceeded.Add(1)
	c.addresses.Add(int64(valid + invalid))
	c.valid.Add(int64(valid))
	c.invalid.Add(int64(invalid))
	c.unconfirmed.Add(int64(unconfirmed))
}

// JobFailed records a job that produced no output.
func (c *Collector) JobFailed(msg string) {
	if c == nil {
		return
	}
	c.jobsActive.Add(-1)
	c.jobsFailed.Add(1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.lastFailMsg = msg
	c.mu.Unlock()
}

// ActiveJobs returns the number of jobs currently running.
func (c *Collector) ActiveJobs() int64 {
	if c == nil {
		return 0
	}
	return c.jobsActive.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	JobsActive         int64  `json:"jobs_active"`
	JobsTotal          int64  `json:"jobs_total"`
	JobsSucceeded      int64  `json:"jobs_succeeded"`
	JobsFailed         int64  `json:"jobs_failed"`
	AddressesValidated int64  `json:"addresses_validated"`
	Valid              int64  `json:"valid"`
	Invalid            int64  `json:"invalid"`
	Unconfirmed        int64  `json:"unconfirmed"`
	LastFailure        string `json:"last_failure,omitempty"`
	LastFailureMessage string `json:"last_failure_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:             time.Since(c.startTime).Truncate(time.Second).String(),
		JobsActive:         c.jobsActive.Load(),
		JobsTotal:          c.jobsTotal.Load(),
		JobsSucceeded:      c.jobsSucceeded.Load(),
		JobsFailed:         c.jobsFailed.Load(),
		AddressesValidated: c.addresses.Load(),
		Valid:              c.valid.Load(),
		Invalid:            c.invalid.Load(),
		Unconfirmed:        c.unconfirmed.Load(),
	}
	if !c.lastFailure.IsZero() {
		s.LastFailure = c.lastFailure.Format(time.RFC3339)
		s.LastFailureMessage = c.lastFailMsg
	}
	return s
}
