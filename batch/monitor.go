package batch

import (
	"time"

	"github.com/poiesic/enricher/core"
)

// Monitor provides hooks to observe a batch cycle.
// Hooks are called from the processing goroutine and must not block.
type Monitor interface {
	CycleStarted(cycleID string, documents int)
	DocumentStarted(doc *core.Document)
	DocumentSucceeded(doc *core.Document, elapsed time.Duration)
	DocumentFailed(doc *core.Document, err error)
	CycleFinished(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) CycleStarted(_ string, _ int)                        {}
func (n *noopMonitor) DocumentStarted(_ *core.Document)                    {}
func (n *noopMonitor) DocumentSucceeded(_ *core.Document, _ time.Duration) {}
func (n *noopMonitor) DocumentFailed(_ *core.Document, _ error)            {}
func (n *noopMonitor) CycleFinished(_ *Result)                             {}
