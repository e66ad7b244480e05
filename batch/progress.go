package batch

import "fmt"

// tracker decides when progress is reported. It is driven from a single
// goroutine, so it needs no locking.
type tracker struct {
	jobID     string
	total     int
	every     int
	sink      Sink
	processed int
	reported  int
}

func newTracker(jobID string, total, every int, sink Sink) *tracker {
	return &tracker{jobID: jobID, total: total, every: every, sink: sink, reported: -1}
}

func (t *tracker) start() {
	t.report("Starting validation...")
}

// advance counts one finished address. It reports after the first
// address, every t.every addresses and at the last one.
func (t *tracker) advance() {
	t.processed++
	if t.processed == 1 || t.processed%t.every == 0 || t.processed == t.total {
		t.report(fmt.Sprintf("Validated %d/%d emails...", t.processed, t.total))
	}
}

func (t *tracker) report(msg string) {
	if t.sink == nil || t.processed <= t.reported {
		return
	}
	t.reported = t.processed
	t.sink.ReportProgress(Progress{
		JobID:     t.jobID,
		Processed: t.processed,
		Total:     t.total,
		Message:   msg,
	})
}
