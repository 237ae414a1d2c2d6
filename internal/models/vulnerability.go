package models

import "time"

// VulnerabilityRecord is the intelligence the engine keeps about one CVE.
// Records are fetched from the vulnerability feed, cached locally, and are
// immutable once fetched for a run.
type VulnerabilityRecord struct {
	CVEID                   string    `json:"cve_id"`
	PublishedDate           time.Time `json:"published_date"`
	InKnownExploitedCatalog bool      `json:"in_known_exploited_catalog"`
	FetchedAt               time.Time `json:"fetched_at"`
}

// IsStale reports whether the CVE is older than the staleness window as of
// the given instant. A record with no published date is never considered
// stale: staleness must be justified by positive evidence.
func (v *VulnerabilityRecord) IsStale(now time.Time, window time.Duration) bool {
	if v.PublishedDate.IsZero() {
		return false
	}
	return now.Sub(v.PublishedDate) > window
}
