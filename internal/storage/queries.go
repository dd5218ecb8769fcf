package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type BlobRow struct {
	Key       string
	Value     []byte
	Version   int64
	UpdatedAt time.Time // stored as unix seconds
}

const getBlob = `SELECT key, value, version, updated_at FROM blobs WHERE key = ?`

func (q *Queries) GetBlob(ctx context.Context, key string) (BlobRow, error) {
	row := q.db.QueryRowContext(ctx, getBlob, key)
	var b BlobRow
	var updated int64
	err := row.Scan(&b.Key, &b.Value, &b.Version, &updated)
	b.UpdatedAt = time.Unix(updated, 0).UTC()
	return b, err
}

const upsertBlob = `INSERT INTO blobs (key, value, version, updated_at)
VALUES (?, ?, 1, strftime('%s', 'now'))
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    version = blobs.version + 1,
    updated_at = strftime('%s', 'now')
RETURNING version`

func (q *Queries) UpsertBlob(ctx context.Context, key string, value []byte) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertBlob, key, value)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const deleteBlob = `DELETE FROM blobs WHERE key = ?`

func (q *Queries) DeleteBlob(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteBlob, key)
	return err
}

const getExportedVersion = `SELECT exported_version FROM exports WHERE key = ?`

func (q *Queries) GetExportedVersion(ctx context.Context, key string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getExportedVersion, key)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const upsertExport = `INSERT INTO exports (key, exported_version, exported_at)
VALUES (?, ?, strftime('%s', 'now'))
ON CONFLICT(key) DO UPDATE SET
    exported_version = MAX(exports.exported_version, excluded.exported_version),
    exported_at = strftime('%s', 'now')`

func (q *Queries) UpsertExport(ctx context.Context, key string, version int64) error {
	_, err := q.db.ExecContext(ctx, upsertExport, key, version)
	return err
}

const deleteExport = `DELETE FROM exports WHERE key = ?`

func (q *Queries) DeleteExport(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteExport, key)
	return err
}
