package batch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/enricher/core"
)

// ProgressMonitor reports batch progress to a writer, typically os.Stderr.
// It implements Monitor.
type ProgressMonitor struct {
	writer         io.Writer
	reportInterval int
	total          int
	current        int
	succeeded      int
	failed         int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

var _ Monitor = (*ProgressMonitor)(nil)

// NewProgressMonitor creates a progress monitor that reports every
// reportInterval documents.
func NewProgressMonitor(writer io.Writer, reportInterval int) *ProgressMonitor {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressMonitor{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// CycleStarted resets the counters for a new cycle of documents.
func (p *ProgressMonitor) CycleStarted(_ string, documents int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = documents
	p.current = 0
	p.succeeded = 0
	p.failed = 0
	p.lastReported = 0
	p.startTime = time.Now()
	p.started = true
}

func (p *ProgressMonitor) DocumentStarted(_ *core.Document) {}

func (p *ProgressMonitor) DocumentSucceeded(_ *core.Document, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.succeeded++
	p.advance()
}

func (p *ProgressMonitor) DocumentFailed(_ *core.Document, _ error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed++
	p.advance()
}

// CycleFinished prints the final line. Deferred documents are reported
// separately since they were never processed.
func (p *ProgressMonitor) CycleFinished(result *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	if result != nil && result.Deferred > 0 {
		fmt.Fprintf(p.writer, " - %d deferred", result.Deferred)
	}
	fmt.Fprintln(p.writer) // Print newline after final progress
	p.started = false
}

// advance must be called with lock held.
func (p *ProgressMonitor) advance() {
	if !p.started {
		return
	}
	p.current++
	if p.current > p.total {
		p.current = p.total
	}
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressMonitor) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %d done, %d failed - %.2f docs/s",
		p.current, p.total, percentage, p.succeeded, p.failed, rate)
}
