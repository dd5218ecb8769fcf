package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finx/internal/ports"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores blobs and export marks in a single SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var (
	_ ports.BlobStore     = (*SQLiteRepository)(nil)
	_ ports.ExportTracker = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps version bumps serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements ports.BlobStore
func (r *SQLiteRepository) Load(ctx context.Context, key string) (ports.Blob, error) {
	row, err := r.queries.GetBlob(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Blob{}, fmt.Errorf("load %s: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return ports.Blob{}, fmt.Errorf("load %s: %w", key, err)
	}
	return ports.Blob{Data: row.Value, Version: row.Version, UpdatedAt: row.UpdatedAt}, nil
}

// Save implements ports.BlobStore
func (r *SQLiteRepository) Save(ctx context.Context, key string, data []byte) (int64, error) {
	version, err := r.queries.UpsertBlob(ctx, key, data)
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Blob saved to SQLite",
		"key", key,
		"version", version,
		"bytes", len(data))

	return version, nil
}

// Delete implements ports.BlobStore. The export mark goes with the blob.
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete %s: %w", key, err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteBlob(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if err := q.DeleteExport(ctx, key); err != nil {
		return fmt.Errorf("delete export mark %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Blob deleted from SQLite", "key", key)
	return nil
}

// ExportedVersion implements ports.ExportTracker. Zero means never exported.
func (r *SQLiteRepository) ExportedVersion(ctx context.Context, key string) (int64, error) {
	v, err := r.queries.GetExportedVersion(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get exported version %s: %w", key, err)
	}
	return v, nil
}

// MarkExported implements ports.ExportTracker. Marks never move backwards.
func (r *SQLiteRepository) MarkExported(ctx context.Context, key string, version int64) error {
	if err := r.queries.UpsertExport(ctx, key, version); err != nil {
		return fmt.Errorf("mark exported %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Blob marked as exported", "key", key, "version", version)
	return nil
}
