// Package cache persists vulnerability records across refinement runs so
// the feed is not re-queried for CVEs it has already answered.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/refractsec/refract/internal/models"
)

// Cache stores vulnerability records keyed by CVE id. A Get only returns
// records fresher than maxAge; stale entries read as misses so the caller
// re-fetches them.
type Cache interface {
	Get(ctx context.Context, cveID string, maxAge time.Duration) (*models.VulnerabilityRecord, error)
	Put(ctx context.Context, record *models.VulnerabilityRecord) error
	Purge(ctx context.Context, olderThan time.Duration) (int, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Error represents a cache-specific error.
type Error struct {
	Err error
	Op  string
	Key string
}

func (e *Error) Error() string {
	return "cache " + e.Op + " failed for key " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MemoryCache is an in-memory Cache for tests and cache-less runs.
type MemoryCache struct {
	records map[string]*models.VulnerabilityRecord
	mu      sync.RWMutex
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[string]*models.VulnerabilityRecord)}
}

// Get returns a fresh record or nil on miss.
func (m *MemoryCache) Get(_ context.Context, cveID string, maxAge time.Duration) (*models.VulnerabilityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[cveID]
	if !ok {
		return nil, nil
	}
	if maxAge > 0 && time.Since(record.FetchedAt) > maxAge {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// Put stores a record, replacing any previous entry for the CVE.
func (m *MemoryCache) Put(_ context.Context, record *models.VulnerabilityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *record
	m.records[record.CVEID] = &copied
	return nil
}

// Purge removes entries fetched longer ago than olderThan.
func (m *MemoryCache) Purge(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, record := range m.records {
		if time.Since(record.FetchedAt) > olderThan {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of cached records.
func (m *MemoryCache) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close is a no-op for the in-memory cache.
func (m *MemoryCache) Close() error {
	return nil
}
