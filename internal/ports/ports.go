package ports

import (
	"context"
	"errors"
	"time"

	"finx/internal/core"
	"finx/internal/finance"
)

// ErrNotFound is returned by a BlobStore when a key has never been saved.
var ErrNotFound = errors.New("not found")

// Blob keys used by the finance service.
const (
	SnapshotKey     = "finx-data"
	AchievementsKey = "finx-achievements"
)

// Blob is an opaque stored value with its write version.
type Blob struct {
	Data      []byte
	Version   int64
	UpdatedAt time.Time
}

// ChatMessage is one turn of an advisor conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ports for outbound adapters.
type (
	// BlobStore persists opaque blobs by key. Every Save bumps the key's version.
	BlobStore interface {
		Load(ctx context.Context, key string) (Blob, error)
		Save(ctx context.Context, key string, data []byte) (version int64, err error)
		Delete(ctx context.Context, key string) error
	}

	// ExportTracker remembers which blob version was last exported.
	ExportTracker interface {
		ExportedVersion(ctx context.Context, key string) (int64, error)
		MarkExported(ctx context.Context, key string, version int64) error
	}

	// EventPublisher announces snapshot changes to other processes.
	EventPublisher interface {
		PublishSnapshotUpdated(ctx context.Context, key string, version int64, s core.Snapshot) error
	}

	// ChatModel sends a conversation to a hosted language model and returns the reply text.
	ChatModel interface {
		Complete(ctx context.Context, system string, messages []ChatMessage) (string, error)
	}

	// ProjectionExporter writes a snapshot summary and its projection somewhere
	// humans can read it.
	ProjectionExporter interface {
		Export(ctx context.Context, s core.Snapshot, points []finance.ProjectionPoint) error
	}
)
