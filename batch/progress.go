package batch

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports progress of a batched operation as a single
// carriage-return-refreshed line. Safe for concurrent use by workers.
type ProgressTracker struct {
	writer         io.Writer
	label          string
	unit           string
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// ProgressOption configures a ProgressTracker.
type ProgressOption func(*ProgressTracker)

// WithLabel sets the line prefix. Default "Progress".
func WithLabel(label string) ProgressOption {
	return func(p *ProgressTracker) {
		p.label = label
	}
}

// WithUnit sets the unit name used in the rate. Default "batches".
func WithUnit(unit string) ProgressOption {
	return func(p *ProgressTracker) {
		p.unit = unit
	}
}

// WithReportInterval reports every n units. Default 1.
func WithReportInterval(n int) ProgressOption {
	return func(p *ProgressTracker) {
		if n > 0 {
			p.reportInterval = n
		}
	}
}

// NewProgressTracker creates a tracker for total units written to writer
// (typically os.Stderr). A nil writer discards output.
func NewProgressTracker(writer io.Writer, total int, opts ...ProgressOption) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	p := &ProgressTracker{
		writer:         writer,
		label:          "Progress",
		unit:           "batches",
		total:          total,
		reportInterval: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Increment increases the current progress by delta.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+delta, p.total)

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Current returns the units completed so far.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish prints the final line. When the run completed, progress is shown as
// total; otherwise the count reached is kept.
func (p *ProgressTracker) Finish(completed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if completed {
		p.current = p.total
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(p.current) / s
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\r%s: %d/%d (%.1f%%) - %.1f %s/s",
		p.label, p.current, p.total, percentage, rate, p.unit)
}
