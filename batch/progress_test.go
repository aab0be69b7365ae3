package batch

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/enricher/core"
	"github.com/stretchr/testify/assert"
)

func TestProgressMonitor_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	m := NewProgressMonitor(&buf, 2)

	m.CycleStarted("cycle", 5)
	for range 3 {
		m.DocumentSucceeded(&core.Document{}, time.Millisecond)
	}
	m.DocumentFailed(&core.Document{}, errors.New("boom"))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "Progress:"))
	assert.Contains(t, out, "Progress: 2/5 (40.0%) - 2 done, 0 failed")
	assert.Contains(t, out, "Progress: 4/5 (80.0%) - 3 done, 1 failed")

	buf.Reset()
	m.CycleFinished(&Result{Deferred: 1})
	out = buf.String()
	assert.Contains(t, out, "Progress: 4/5")
	assert.Contains(t, out, " - 1 deferred\n")
}

func TestProgressMonitor_IgnoresEventsOutsideCycle(t *testing.T) {
	var buf bytes.Buffer
	m := NewProgressMonitor(&buf, 0)

	m.DocumentSucceeded(&core.Document{}, time.Millisecond)
	m.CycleFinished(&Result{})
	assert.Empty(t, buf.String())
}
