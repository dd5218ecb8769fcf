package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finx/internal/amqp"
	"finx/internal/finance"
	"finx/internal/ports"
	"finx/internal/storage"
)

// DefaultExportMonths is the projection horizon written on each export.
const DefaultExportMonths = 60

// ExportWorker copies the stored snapshot and its projection to a
// ProjectionExporter whenever the stored version is newer than the last export.
type ExportWorker struct {
	store    ports.BlobStore
	tracker  ports.ExportTracker
	exporter ports.ProjectionExporter
	months   int
	now      func() time.Time
}

func NewExportWorker(store ports.BlobStore, tracker ports.ExportTracker, exporter ports.ProjectionExporter, months int) *ExportWorker {
	if months <= 0 {
		months = DefaultExportMonths
	}
	return &ExportWorker{
		store:    store,
		tracker:  tracker,
		exporter: exporter,
		months:   months,
		now:      time.Now,
	}
}

// HandleSnapshotUpdated processes a single snapshot event from AMQP.
// Events for versions already exported are acknowledged without work.
func (w *ExportWorker) HandleSnapshotUpdated(ctx context.Context, msg *amqp.SnapshotUpdatedMessage) error {
	slog.InfoContext(ctx, "Processing snapshot updated message",
		"key", msg.Key,
		"version", msg.Version,
		"risk_score", msg.RiskScore)

	if msg.Key != ports.SnapshotKey {
		slog.WarnContext(ctx, "Ignoring event for unknown key", "key", msg.Key)
		return nil
	}

	exported, err := w.tracker.ExportedVersion(ctx, msg.Key)
	if err != nil {
		return fmt.Errorf("get exported version: %w", err)
	}
	if msg.Version <= exported {
		slog.InfoContext(ctx, "Snapshot version already exported",
			"key", msg.Key,
			"version", msg.Version,
			"exported_version", exported)
		return nil
	}

	_, err = w.export(ctx, msg.Key)
	return err
}

// ProcessPending exports the stored snapshot if it changed since the last
// export. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) (bool, error) {
	blob, err := w.store.Load(ctx, ports.SnapshotKey)
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	exported, err := w.tracker.ExportedVersion(ctx, ports.SnapshotKey)
	if err != nil {
		return false, fmt.Errorf("get exported version: %w", err)
	}
	if blob.Version <= exported {
		return false, nil
	}
	return w.export(ctx, ports.SnapshotKey)
}

// StartupSyncCheck exports anything missed while the worker was down.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	exported, err := w.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("startup export: %w", err)
	}
	if exported {
		slog.InfoContext(ctx, "Exported pending snapshot on startup")
	} else {
		slog.InfoContext(ctx, "No pending snapshot found on startup")
	}
	return nil
}

// Run calls ProcessPending every interval until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}

// export reads the latest blob rather than trusting the event payload, so a
// late event never overwrites a newer export.
func (w *ExportWorker) export(ctx context.Context, key string) (bool, error) {
	blob, err := w.store.Load(ctx, key)
	if errors.Is(err, ports.ErrNotFound) {
		slog.InfoContext(ctx, "Snapshot no longer stored, nothing to export", "key", key)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	s := finance.Derive(storage.DecodeSnapshot(ctx, blob.Data))
	points := finance.Project(s, w.months, w.now())

	if err := w.exporter.Export(ctx, s, points); err != nil {
		return false, fmt.Errorf("export snapshot: %w", err)
	}

	if err := w.tracker.MarkExported(ctx, key, blob.Version); err != nil {
		// The export itself worked; the next pass repeats it harmlessly.
		slog.ErrorContext(ctx, "Failed to mark snapshot as exported",
			"key", key,
			"version", blob.Version,
			"error", err)
	}

	slog.InfoContext(ctx, "Successfully exported snapshot",
		"key", key,
		"version", blob.Version,
		"risk_score", s.RiskScore,
		"months", len(points))
	return true, nil
}
