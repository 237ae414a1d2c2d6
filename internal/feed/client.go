// Package feed fetches vulnerability intelligence: membership in the
// known-exploited catalog and CVE publication dates. The feed is a
// best-effort source; callers must treat lookup failures as unknown
// relevance, never as evidence of staleness.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/refractsec/refract/internal/config"
	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// Default endpoints for the public catalogs.
const (
	DefaultCatalogURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	DefaultCVEURL     = "https://services.nvd.nist.gov/rest/json/cves/2.0"
)

// minRequestInterval limits feed requests to 10/sec to avoid rate limiting.
const minRequestInterval = 100 * time.Millisecond

// Catalog is the set of CVE ids confirmed exploited in the wild, with the
// date each entry was added.
type Catalog map[string]time.Time

// Contains reports catalog membership for a CVE id.
func (c Catalog) Contains(cveID string) bool {
	_, ok := c[cveID]
	return ok
}

// Client fetches the known-exploited catalog and per-CVE records.
type Client struct {
	httpClient  *http.Client
	logger      logger.Logger
	catalogURL  string
	cveURL      string
	maxRetries  int
	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a feed client from configuration.
func NewClient(cfg config.FeedConfig) *Client {
	return NewClientWithLogger(cfg, logger.GetGlobalLogger())
}

// NewClientWithLogger creates a feed client with a custom logger.
func NewClientWithLogger(cfg config.FeedConfig, log logger.Logger) *Client {
	catalogURL := cfg.CatalogURL
	if catalogURL == "" {
		catalogURL = DefaultCatalogURL
	}
	cveURL := cfg.CVEURL
	if cveURL == "" {
		cveURL = DefaultCVEURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		catalogURL: catalogURL,
		cveURL:     cveURL,
		maxRetries: cfg.MaxRetries,
		logger:     log,
	}
}

// FetchCatalog pulls the known-exploited catalog. It retries with
// exponential backoff up to the configured budget; the caller decides what
// an error means (for the pipeline: unknown relevance, run-level warning).
func (c *Client) FetchCatalog(ctx context.Context) (Catalog, error) {
	var catalog Catalog

	operation := func() error {
		resp, err := c.rateLimitedGet(ctx, c.catalogURL)
		if err != nil {
			return fmt.Errorf("fetching catalog: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("catalog endpoint returned status %d", resp.StatusCode)
		}

		var parsed catalogResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decoding catalog response: %w", err)
		}

		catalog = make(Catalog, len(parsed.Vulnerabilities))
		for _, entry := range parsed.Vulnerabilities {
			added, err := time.Parse("2006-01-02", entry.DateAdded)
			if err != nil {
				added = time.Time{}
			}
			catalog[entry.CVEID] = added
		}
		return nil
	}

	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched known-exploited catalog", "entries", len(catalog))
	return catalog, nil
}

// FetchRecord looks up one CVE and returns its vulnerability record. The
// catalog supplies known-exploited membership so a record lookup never
// depends on a second remote call.
func (c *Client) FetchRecord(ctx context.Context, cveID string, catalog Catalog) (*models.VulnerabilityRecord, error) {
	var record *models.VulnerabilityRecord

	operation := func() error {
		lookupURL := fmt.Sprintf("%s?cveId=%s", c.cveURL, url.QueryEscape(cveID))
		resp, err := c.rateLimitedGet(ctx, lookupURL)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", cveID, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("cve endpoint returned status %d for %s", resp.StatusCode, cveID)
		}

		var parsed cveResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decoding response for %s: %w", cveID, err)
		}

		if len(parsed.Vulnerabilities) == 0 {
			return backoff.Permanent(fmt.Errorf("no record found for %s", cveID))
		}

		published, err := time.Parse(time.RFC3339, parsed.Vulnerabilities[0].CVE.Published)
		if err != nil {
			// Some feeds omit the timezone suffix
			published, err = time.Parse("2006-01-02T15:04:05.000", parsed.Vulnerabilities[0].CVE.Published)
			if err != nil {
				published = time.Time{}
			}
		}

		record = &models.VulnerabilityRecord{
			CVEID:                   cveID,
			PublishedDate:           published,
			InKnownExploitedCatalog: catalog.Contains(cveID),
			FetchedAt:               time.Now().UTC(),
		}
		return nil
	}

	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		return nil, err
	}

	return record, nil
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)
}

// rateLimitedGet performs a rate-limited HTTP GET request.
func (c *Client) rateLimitedGet(ctx context.Context, rawURL string) (*http.Response, error) {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}
