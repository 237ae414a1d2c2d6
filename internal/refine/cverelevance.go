package refine

import (
	"strings"
	"time"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// SuppressedReasonStaleCVE is the reason recorded when every cited CVE on a
// threat is stale and nothing else justifies the finding.
const SuppressedReasonStaleCVE = "stale_cve"

// riskJustificationTerms are description markers that count as risk
// justification independent of any cited CVE. A threat whose description
// matches one of these is kept even when all its CVEs are stale.
var riskJustificationTerms = []string{
	"unauthenticated",
	"default credential",
	"hardcoded",
	"hard-coded",
	"plaintext",
	"cleartext",
	"exposed",
	"publicly accessible",
	"injection",
	"misconfigur",
	"weak cipher",
	"weak password",
	"no encryption",
	"unencrypted",
	"missing authentication",
	"missing authorization",
}

// CVEFilter suppresses threats whose only justification is stale
// vulnerability citations. Records the feed could not supply are unknown
// relevance: they never count toward staleness, so an unreachable feed
// fails open.
type CVEFilter struct {
	records   map[string]*models.VulnerabilityRecord
	now       time.Time
	logger    logger.Logger
	staleness time.Duration
}

// NewCVEFilter creates a filter over resolved vulnerability records.
func NewCVEFilter(records map[string]*models.VulnerabilityRecord, staleness time.Duration, now time.Time) *CVEFilter {
	return NewCVEFilterWithLogger(records, staleness, now, logger.GetGlobalLogger())
}

// NewCVEFilterWithLogger creates a filter with a custom logger.
func NewCVEFilterWithLogger(records map[string]*models.VulnerabilityRecord, staleness time.Duration, now time.Time, log logger.Logger) *CVEFilter {
	return &CVEFilter{
		records:   records,
		staleness: staleness,
		now:       now,
		logger:    log,
	}
}

// Apply suppresses the threat when all of its cited CVEs are irrelevant and
// its description carries no independent risk justification. A cited CVE is
// irrelevant only with positive evidence: a known published date beyond the
// staleness window and absence from the known-exploited catalog. Threats
// citing no CVEs are never suppressed here.
func (f *CVEFilter) Apply(t *models.Threat) {
	if t.Status != models.StatusActive {
		return
	}
	if len(t.CitedCVEs) == 0 {
		return
	}

	for _, cveID := range t.CitedCVEs {
		record, known := f.records[cveID]
		if !known {
			// Unknown relevance, fail open.
			return
		}
		if record.InKnownExploitedCatalog {
			return
		}
		if !record.IsStale(f.now, f.staleness) {
			return
		}
	}

	if hasRiskJustification(t.Description) {
		return
	}

	t.Suppress(SuppressedReasonStaleCVE)
	f.logger.Debug("Threat suppressed for stale CVE citations",
		"threat", t.ID, "cves", strings.Join(t.CitedCVEs, ","))
}

// hasRiskJustification reports whether the description justifies the threat
// independently of its CVE citations.
func hasRiskJustification(description string) bool {
	lower := strings.ToLower(description)
	for _, term := range riskJustificationTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
