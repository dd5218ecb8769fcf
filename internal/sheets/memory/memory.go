package memory

import (
	"context"
	"sync"

	"finx/internal/core"
	"finx/internal/finance"
	"finx/internal/ports"
)

// Export is one recorded call to Exporter.Export.
type Export struct {
	Snapshot core.Snapshot
	Points   []finance.ProjectionPoint
}

// Exporter keeps exports in memory. The worker uses it when no spreadsheet
// is configured.
type Exporter struct {
	mu      sync.Mutex
	exports []Export
	err     error
}

var _ ports.ProjectionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes every following Export return err. A nil err restores success.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Export records a copy of the snapshot and points.
func (e *Exporter) Export(_ context.Context, s core.Snapshot, points []finance.ProjectionPoint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.exports = append(e.exports, Export{
		Snapshot: s.Clone(),
		Points:   append([]finance.ProjectionPoint(nil), points...),
	})
	return nil
}

// Exports returns the recorded exports, oldest first.
func (e *Exporter) Exports() []Export {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Export(nil), e.exports...)
}

// Last returns the most recent export.
func (e *Exporter) Last() (Export, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.exports) == 0 {
		return Export{}, false
	}
	return e.exports[len(e.exports)-1], true
}
