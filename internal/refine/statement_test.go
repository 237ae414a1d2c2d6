package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

func statementThreat(category models.StrideCategory) *models.Threat {
	return &models.Threat{
		ID:                      "t-stmt",
		ComponentRef:            "payment api",
		CanonicalComponent:      "Payment API",
		StrideCategory:          category,
		Description:             "An attacker tampers with settlement records",
		Status:                  models.StatusActive,
		ResidualRisk:            7.25,
		BusinessImpactStatement: "Integrity loss in this process propagates corrupted data to downstream consumers.",
	}
}

func TestStatementGeneration(t *testing.T) {
	tests := []struct {
		name     string
		industry models.IndustryProfile
		category models.StrideCategory
		contains []string
	}{
		{
			name:     "generic tampering",
			industry: models.IndustryGeneric,
			category: models.StrideTampering,
			contains: []string{"Data handled by Payment API may be tampered with", "residual risk 7.2"},
		},
		{
			name:     "finance tampering uses industry framing",
			industry: models.IndustryFinance,
			category: models.StrideTampering,
			contains: []string{"financial records", "transaction integrity"},
		},
		{
			name:     "healthcare disclosure references HIPAA",
			industry: models.IndustryHealthcare,
			category: models.StrideInformationDisclosure,
			contains: []string{"protected health information", "HIPAA"},
		},
		{
			name:     "finance without specific template falls back to generic",
			industry: models.IndustryFinance,
			category: models.StrideElevationOfPrivilege,
			contains: []string{"Payment API may be abused to gain elevated privileges"},
		},
		{
			name:     "healthcare spoofing falls back to generic",
			industry: models.IndustryHealthcare,
			category: models.StrideSpoofing,
			contains: []string{"An attacker may impersonate Payment API"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewStatementGeneratorWithLogger(tt.industry, logger.NewMockLogger())
			threat := statementThreat(tt.category)
			g.Apply(threat)

			for _, want := range tt.contains {
				assert.Contains(t, threat.RiskStatement, want)
			}
			assert.Contains(t, threat.RiskStatement, threat.BusinessImpactStatement,
				"statement always embeds the business impact justification")
		})
	}
}

func TestStatementUsesCanonicalComponent(t *testing.T) {
	g := NewStatementGeneratorWithLogger(models.IndustryGeneric, logger.NewMockLogger())

	matched := statementThreat(models.StrideSpoofing)
	g.Apply(matched)
	assert.Contains(t, matched.RiskStatement, "Payment API")
	assert.NotContains(t, matched.RiskStatement, "payment api")

	unmatched := statementThreat(models.StrideSpoofing)
	unmatched.CanonicalComponent = ""
	unmatched.UnmatchedComponent = true
	g.Apply(unmatched)
	assert.Contains(t, unmatched.RiskStatement, "payment api",
		"unmatched components keep the raw reference")
}

func TestStatementSkipsTerminalThreats(t *testing.T) {
	g := NewStatementGeneratorWithLogger(models.IndustryGeneric, logger.NewMockLogger())

	threat := statementThreat(models.StrideTampering)
	threat.Status = models.StatusMerged
	g.Apply(threat)

	assert.Empty(t, threat.RiskStatement)
}

func TestEveryCategoryHasGenericTemplate(t *testing.T) {
	for _, category := range models.AllStrideCategories() {
		_, ok := statementTemplates[templateKey{category, models.IndustryGeneric}]
		assert.True(t, ok, "missing generic template for %s", category)
	}
}
