package refine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

var filterNow = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

const fiveYears = 5 * 365 * 24 * time.Hour

func record(cveID string, published time.Time, kev bool) *models.VulnerabilityRecord {
	return &models.VulnerabilityRecord{
		CVEID:                   cveID,
		PublishedDate:           published,
		InKnownExploitedCatalog: kev,
		FetchedAt:               filterNow,
	}
}

func TestCVEFilterApply(t *testing.T) {
	eightYearsOld := filterNow.AddDate(-8, 0, 0)
	oneYearOld := filterNow.AddDate(-1, 0, 0)

	tests := []struct {
		records    map[string]*models.VulnerabilityRecord
		name       string
		desc       string
		cves       []string
		wantStatus models.ThreatStatus
		wantReason string
	}{
		{
			// A threat citing only a CVE published 8 years ago, not in the
			// known-exploited catalog, with no other justification.
			name: "stale unexploited CVE suppresses",
			cves: []string{"CVE-2017-0001"},
			desc: "Vulnerable library version per CVE-2017-0001.",
			records: map[string]*models.VulnerabilityRecord{
				"CVE-2017-0001": record("CVE-2017-0001", eightYearsOld, false),
			},
			wantStatus: models.StatusSuppressed,
			wantReason: SuppressedReasonStaleCVE,
		},
		{
			// Same CVE but present in the known-exploited catalog.
			name: "old but known-exploited CVE stays",
			cves: []string{"CVE-2017-0001"},
			desc: "Vulnerable library version per CVE-2017-0001.",
			records: map[string]*models.VulnerabilityRecord{
				"CVE-2017-0001": record("CVE-2017-0001", eightYearsOld, true),
			},
			wantStatus: models.StatusActive,
		},
		{
			name: "recent CVE stays",
			cves: []string{"CVE-2024-1111"},
			desc: "Vulnerable library version per CVE-2024-1111.",
			records: map[string]*models.VulnerabilityRecord{
				"CVE-2024-1111": record("CVE-2024-1111", oneYearOld, false),
			},
			wantStatus: models.StatusActive,
		},
		{
			name: "one fresh CVE among stale ones keeps the threat",
			cves: []string{"CVE-2017-0001", "CVE-2024-1111"},
			desc: "Multiple vulnerable dependencies.",
			records: map[string]*models.VulnerabilityRecord{
				"CVE-2017-0001": record("CVE-2017-0001", eightYearsOld, false),
				"CVE-2024-1111": record("CVE-2024-1111", oneYearOld, false),
			},
			wantStatus: models.StatusActive,
		},
		{
			name:       "no cited CVEs never suppresses",
			cves:       nil,
			desc:       "Anyone can read the exported reports.",
			records:    map[string]*models.VulnerabilityRecord{},
			wantStatus: models.StatusActive,
		},
		{
			// Feed gave us nothing for this CVE: unknown relevance, fail open.
			name:       "unknown record never suppresses",
			cves:       []string{"CVE-2017-0001"},
			desc:       "Vulnerable library version per CVE-2017-0001.",
			records:    map[string]*models.VulnerabilityRecord{},
			wantStatus: models.StatusActive,
		},
		{
			name: "independent justification keeps stale CVE threat",
			cves: []string{"CVE-2017-0001"},
			desc: "Endpoint is publicly accessible without authentication; see also CVE-2017-0001.",
			records: map[string]*models.VulnerabilityRecord{
				"CVE-2017-0001": record("CVE-2017-0001", eightYearsOld, false),
			},
			wantStatus: models.StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewCVEFilterWithLogger(tt.records, fiveYears, filterNow, logger.NewMockLogger())
			threat := &models.Threat{
				ID:             "t-1",
				ComponentRef:   "Payment API",
				StrideCategory: models.StrideTampering,
				Description:    tt.desc,
				CitedCVEs:      tt.cves,
				Status:         models.StatusActive,
			}
			f.Apply(threat)

			assert.Equal(t, tt.wantStatus, threat.Status)
			assert.Equal(t, tt.wantReason, threat.SuppressedReason)
		})
	}
}

func TestCVEFilterSkipsTerminalThreats(t *testing.T) {
	f := NewCVEFilterWithLogger(nil, fiveYears, filterNow, logger.NewMockLogger())
	threat := &models.Threat{
		ID:               "t-1",
		Status:           models.StatusSuppressed,
		SuppressedReason: "control:tls-everywhere",
		CitedCVEs:        []string{"CVE-2017-0001"},
	}
	f.Apply(threat)

	assert.Equal(t, "control:tls-everywhere", threat.SuppressedReason)
}

func TestHasRiskJustification(t *testing.T) {
	assert.True(t, hasRiskJustification("Admin console is publicly accessible"))
	assert.True(t, hasRiskJustification("Uses hardcoded API keys"))
	assert.False(t, hasRiskJustification("Outdated dependency cited in CVE-2016-9999"))
}
