package refine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refractsec/refract/internal/config"
	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

var riskNow = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

func riskCalculator(
	controls []models.Control,
	records map[string]*models.VulnerabilityRecord,
) *RiskCalculator {
	components := models.ComponentIndex([]models.Component{
		{CanonicalName: "Payment API", Type: models.ComponentProcess},
		{CanonicalName: "Customer Database", Type: models.ComponentDataStore},
	})
	return NewRiskCalculatorWithLogger(
		controls, components, records,
		config.Default().Risk, fiveYears, riskNow,
		logger.NewMockLogger(),
	)
}

func riskThreat(category models.StrideCategory, cves ...string) *models.Threat {
	return &models.Threat{
		ID:                 "t-risk",
		ComponentRef:       "Payment API",
		CanonicalComponent: "Payment API",
		StrideCategory:     category,
		Description:        "An attacker tampers with settlement records",
		InherentRiskScore:  6.0,
		Status:             models.StatusActive,
		CitedCVEs:          cves,
	}
}

func TestExploitabilityGrading(t *testing.T) {
	records := map[string]*models.VulnerabilityRecord{
		"CVE-2024-0001": record("CVE-2024-0001", riskNow.AddDate(-1, 0, 0), true),
		"CVE-2024-0002": record("CVE-2024-0002", riskNow.AddDate(-1, 0, 0), false),
		"CVE-2015-0003": record("CVE-2015-0003", riskNow.AddDate(-10, 0, 0), false),
	}

	tests := []struct {
		name string
		cves []string
		want models.Exploitability
	}{
		{
			name: "no cited CVEs is low",
			cves: nil,
			want: models.ExploitabilityLow,
		},
		{
			name: "unknown CVE is low",
			cves: []string{"CVE-2024-9999"},
			want: models.ExploitabilityLow,
		},
		{
			name: "stale CVE is low",
			cves: []string{"CVE-2015-0003"},
			want: models.ExploitabilityLow,
		},
		{
			name: "recent known CVE is medium",
			cves: []string{"CVE-2024-0002"},
			want: models.ExploitabilityMedium,
		},
		{
			name: "known exploited CVE is high",
			cves: []string{"CVE-2024-0001"},
			want: models.ExploitabilityHigh,
		},
		{
			name: "exploited CVE dominates recent CVE",
			cves: []string{"CVE-2024-0002", "CVE-2024-0001"},
			want: models.ExploitabilityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := riskCalculator(nil, records)
			threat := riskThreat(models.StrideTampering, tt.cves...)

			require.NoError(t, calc.Apply(threat))
			assert.Equal(t, tt.want, threat.Exploitability)
		})
	}
}

func TestMitigationMaturityGrading(t *testing.T) {
	tests := []struct {
		name     string
		controls []models.Control
		want     models.MitigationMaturity
	}{
		{
			name:     "no controls is none",
			controls: nil,
			want:     models.MaturityNone,
		},
		{
			name: "control covering a different category is none",
			controls: []models.Control{{
				Name:      "sso-gateway",
				Coverage:  []models.StrideCategory{models.StrideSpoofing},
				AppliesTo: []string{models.GlobalScope},
			}},
			want: models.MaturityNone,
		},
		{
			name: "global coverage is partial",
			controls: []models.Control{{
				Name:      "integrity-monitor",
				Coverage:  []models.StrideCategory{models.StrideTampering},
				AppliesTo: []string{models.GlobalScope},
			}},
			want: models.MaturityPartial,
		},
		{
			name: "component-scoped coverage is strong",
			controls: []models.Control{{
				Name:      "payment-waf",
				Coverage:  []models.StrideCategory{models.StrideTampering},
				AppliesTo: []string{"Payment API"},
			}},
			want: models.MaturityStrong,
		},
		{
			name: "component-scoped beats global when both apply",
			controls: []models.Control{
				{
					Name:      "integrity-monitor",
					Coverage:  []models.StrideCategory{models.StrideTampering},
					AppliesTo: []string{models.GlobalScope},
				},
				{
					Name:      "payment-waf",
					Coverage:  []models.StrideCategory{models.StrideTampering},
					AppliesTo: []string{"Payment API"},
				},
			},
			want: models.MaturityStrong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := riskCalculator(tt.controls, nil)
			threat := riskThreat(models.StrideTampering)

			require.NoError(t, calc.Apply(threat))
			assert.Equal(t, tt.want, threat.MitigationMaturity)
		})
	}
}

func TestMaturityIgnoresUnmatchedComponent(t *testing.T) {
	controls := []models.Control{{
		Name:      "payment-waf",
		Coverage:  []models.StrideCategory{models.StrideTampering},
		AppliesTo: []string{"Payment API"},
	}}

	calc := riskCalculator(controls, nil)
	threat := riskThreat(models.StrideTampering)
	threat.UnmatchedComponent = true

	require.NoError(t, calc.Apply(threat))
	assert.Equal(t, models.MaturityNone, threat.MitigationMaturity,
		"component-scoped controls cannot apply to an unmatched component")
}

func TestResidualRiskModifiers(t *testing.T) {
	weights := config.Default().Risk
	calc := riskCalculator(nil, nil)

	tests := []struct {
		name     string
		inherent float64
		e        models.Exploitability
		m        models.MitigationMaturity
		want     float64
	}{
		{"baseline is inherent", 6.0, models.ExploitabilityLow, models.MaturityNone, 6.0},
		{"medium exploitability raises", 6.0, models.ExploitabilityMedium, models.MaturityNone, 6.0 * weights.ExploitabilityMedium},
		{"high exploitability raises more", 6.0, models.ExploitabilityHigh, models.MaturityNone, 6.0 * weights.ExploitabilityHigh},
		{"partial maturity lowers", 6.0, models.ExploitabilityLow, models.MaturityPartial, 6.0 / weights.MaturityPartial},
		{"strong maturity lowers more", 6.0, models.ExploitabilityLow, models.MaturityStrong, 6.0 / weights.MaturityStrong},
		{"clipped to scale maximum", 9.5, models.ExploitabilityHigh, models.MaturityNone, weights.ScaleMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.residualRisk(tt.inherent, tt.e, tt.m), 1e-9)
		})
	}
}

// Residual risk is monotone in both inputs: raising exploitability never
// lowers it and strengthening maturity never raises it.
func TestResidualRiskMonotonicity(t *testing.T) {
	calc := riskCalculator(nil, nil)

	exploitability := []models.Exploitability{
		models.ExploitabilityLow, models.ExploitabilityMedium, models.ExploitabilityHigh,
	}
	maturity := []models.MitigationMaturity{
		models.MaturityStrong, models.MaturityPartial, models.MaturityNone,
	}

	for _, inherent := range []float64{0, 2.5, 6.0, 10.0} {
		for _, m := range maturity {
			previous := -1.0
			for _, e := range exploitability {
				risk := calc.residualRisk(inherent, e, m)
				assert.GreaterOrEqual(t, risk, previous,
					"inherent=%v maturity=%v exploitability=%v", inherent, m, e)
				previous = risk
			}
		}
		for _, e := range exploitability {
			previous := -1.0
			for _, m := range maturity {
				risk := calc.residualRisk(inherent, e, m)
				assert.GreaterOrEqual(t, risk, previous,
					"inherent=%v exploitability=%v maturity=%v", inherent, e, m)
				previous = risk
			}
		}
	}
}

func TestBusinessImpactUsesComponentType(t *testing.T) {
	calc := riskCalculator(nil, nil)

	datastore := riskThreat(models.StrideInformationDisclosure)
	datastore.ComponentRef = "Customer Database"
	datastore.CanonicalComponent = "Customer Database"
	require.NoError(t, calc.Apply(datastore))
	assert.Contains(t, datastore.BusinessImpactStatement, "this data store")

	process := riskThreat(models.StrideDenialOfService)
	require.NoError(t, calc.Apply(process))
	assert.Contains(t, process.BusinessImpactStatement, "this process")
}

func TestApplyRejectsTerminalThreat(t *testing.T) {
	calc := riskCalculator(nil, nil)

	threat := riskThreat(models.StrideTampering)
	threat.Status = models.StatusSuppressed

	err := calc.Apply(threat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
}
