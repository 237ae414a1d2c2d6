package feed

import (
	"context"
	"time"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// Fetcher is the remote side of a Resolver. *Client satisfies it; tests
// substitute stubs.
type Fetcher interface {
	FetchCatalog(ctx context.Context) (Catalog, error)
	FetchRecord(ctx context.Context, cveID string, catalog Catalog) (*models.VulnerabilityRecord, error)
}

// RecordCache is the subset of the cache interface the resolver needs.
type RecordCache interface {
	Get(ctx context.Context, cveID string, maxAge time.Duration) (*models.VulnerabilityRecord, error)
	Put(ctx context.Context, record *models.VulnerabilityRecord) error
}

// Resolver turns a set of cited CVE ids into vulnerability records, going
// through the local cache first and the remote feed second. Lookups that
// fail are reported as warnings and omitted from the result: a missing
// record means unknown relevance, never staleness.
type Resolver struct {
	fetcher Fetcher
	cache   RecordCache
	logger  logger.Logger
	ttl     time.Duration
}

// NewResolver creates a resolver over a fetcher and cache.
func NewResolver(fetcher Fetcher, recordCache RecordCache, ttl time.Duration) *Resolver {
	return NewResolverWithLogger(fetcher, recordCache, ttl, logger.GetGlobalLogger())
}

// NewResolverWithLogger creates a resolver with a custom logger.
func NewResolverWithLogger(fetcher Fetcher, recordCache RecordCache, ttl time.Duration, log logger.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   recordCache,
		ttl:     ttl,
		logger:  log,
	}
}

// Resolve fetches records for the given CVE ids. The catalog is pulled at
// most once per call, not per CVE. Returns the records it could obtain and
// run-level warnings for everything it could not.
func (r *Resolver) Resolve(ctx context.Context, cveIDs []string) (map[string]*models.VulnerabilityRecord, []string) {
	records := make(map[string]*models.VulnerabilityRecord, len(cveIDs))
	var warnings []string

	if len(cveIDs) == 0 {
		return records, warnings
	}

	// Cache pass first so a dead feed still serves fresh entries.
	var misses []string
	for _, cveID := range cveIDs {
		if _, done := records[cveID]; done {
			continue
		}
		cached, err := r.cache.Get(ctx, cveID, r.ttl)
		if err != nil {
			r.logger.Warn("Cache lookup failed", "cve", cveID, "error", err)
		}
		if cached != nil {
			records[cveID] = cached
			continue
		}
		misses = append(misses, cveID)
	}

	if len(misses) == 0 {
		return records, warnings
	}

	catalog, err := r.fetcher.FetchCatalog(ctx)
	if err != nil {
		r.logger.Warn("Known-exploited catalog unavailable", "error", err)
		warnings = append(warnings, "vulnerability feed unavailable: "+err.Error())
		return records, warnings
	}

	for _, cveID := range misses {
		record, err := r.fetcher.FetchRecord(ctx, cveID, catalog)
		if err != nil {
			r.logger.Warn("CVE lookup failed, treating as unknown", "cve", cveID, "error", err)
			warnings = append(warnings, "lookup failed for "+cveID+", treated as unknown relevance")
			continue
		}

		records[cveID] = record
		if putErr := r.cache.Put(ctx, record); putErr != nil {
			r.logger.Warn("Failed to cache record", "cve", cveID, "error", putErr)
		}
	}

	return records, warnings
}
