package cache

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/sync/singleflight"

	"finx/internal/core"
	"finx/internal/finance"
)

// ProjectionCache memoizes finance.Project by snapshot fingerprint, horizon
// and start month. Concurrent misses for the same key compute once.
type ProjectionCache struct {
	lru   *LRUCache[[]finance.ProjectionPoint]
	group singleflight.Group
}

var _ Cleaner = (*ProjectionCache)(nil)

func NewProjectionCache(maxSize int, ttl time.Duration) *ProjectionCache {
	return &ProjectionCache{lru: NewLRUCache[[]finance.ProjectionPoint](maxSize, ttl)}
}

type projectionKey struct {
	Snapshot core.Snapshot
	Months   int
	Year     int
	Month    int
}

// Fingerprint identifies a projection request. Two snapshots with equal
// fields give equal fingerprints.
func Fingerprint(s core.Snapshot, months int, start time.Time) (string, error) {
	h, err := hashstructure.Hash(projectionKey{
		Snapshot: s,
		Months:   months,
		Year:     start.Year(),
		Month:    int(start.Month()),
	}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("fingerprint snapshot: %w", err)
	}
	return strconv.FormatUint(h, 16), nil
}

// Project returns the projection for s, computing it on a miss. The returned
// slice is a copy the caller may modify.
func (c *ProjectionCache) Project(s core.Snapshot, months int, start time.Time) ([]finance.ProjectionPoint, error) {
	key, err := Fingerprint(s, months, start)
	if err != nil {
		return nil, err
	}
	if points, ok := c.lru.Get(key); ok {
		return clonePoints(points), nil
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		points := finance.Project(s, months, start)
		c.lru.Set(key, points)
		return points, nil
	})
	return clonePoints(v.([]finance.ProjectionPoint)), nil
}

// Purge drops every cached projection.
func (c *ProjectionCache) Purge() {
	c.lru.Purge()
}

func (c *ProjectionCache) Size() int {
	return c.lru.Size()
}

// CleanExpired implements Cleaner.
func (c *ProjectionCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func clonePoints(in []finance.ProjectionPoint) []finance.ProjectionPoint {
	return append([]finance.ProjectionPoint{}, in...)
}
