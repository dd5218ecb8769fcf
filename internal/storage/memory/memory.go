package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"finx/internal/ports"
)

// SeedFile is read from the data directory by NewFromDir.
const SeedFile = "finx-data.json"

// Store keeps blobs in process memory. It also tracks export marks so a
// worker can run against it in tests.
type Store struct {
	mu       sync.Mutex
	blobs    map[string]ports.Blob
	exported map[string]int64
	now      func() time.Time
}

var (
	_ ports.BlobStore     = (*Store)(nil)
	_ ports.ExportTracker = (*Store)(nil)
)

func New() *Store {
	return &Store{
		blobs:    map[string]ports.Blob{},
		exported: map[string]int64{},
		now:      time.Now,
	}
}

// NewFromDir returns a store seeded with base/finx-data.json when present.
// A missing or empty seed file leaves the store empty.
func NewFromDir(base string) *Store {
	s := New()
	data, err := os.ReadFile(filepath.Join(base, SeedFile))
	if err != nil || len(data) == 0 {
		return s
	}
	s.blobs[ports.SnapshotKey] = ports.Blob{Data: data, Version: 1, UpdatedAt: s.now().UTC()}
	return s
}

// Load returns a copy of the stored blob.
func (s *Store) Load(_ context.Context, key string) (ports.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return ports.Blob{}, fmt.Errorf("load %s: %w", key, ports.ErrNotFound)
	}
	b.Data = append([]byte(nil), b.Data...)
	return b, nil
}

// Save stores a copy of data and bumps the key's version.
func (s *Store) Save(_ context.Context, key string, data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := s.blobs[key].Version + 1
	s.blobs[key] = ports.Blob{
		Data:      append([]byte(nil), data...),
		Version:   version,
		UpdatedAt: s.now().UTC(),
	}
	return version, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	delete(s.exported, key)
	return nil
}

func (s *Store) ExportedVersion(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exported[key], nil
}

func (s *Store) MarkExported(_ context.Context, key string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported[key] = max(s.exported[key], version)
	return nil
}
