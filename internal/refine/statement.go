package refine

import (
	"fmt"
	"strings"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// templateKey selects a risk statement template.
type templateKey struct {
	stride   models.StrideCategory
	industry models.IndustryProfile
}

// Statement templates. Placeholders: {component}, {residual}, {impact}.
// Every STRIDE category has a generic entry; industry-specific entries
// exist only where the framing actually differs.
var statementTemplates = map[templateKey]string{
	{models.StrideSpoofing, models.IndustryGeneric}:              "An attacker may impersonate {component} (residual risk {residual}). {impact}",
	{models.StrideTampering, models.IndustryGeneric}:             "Data handled by {component} may be tampered with (residual risk {residual}). {impact}",
	{models.StrideRepudiation, models.IndustryGeneric}:           "Actions involving {component} may be performed without attribution (residual risk {residual}). {impact}",
	{models.StrideInformationDisclosure, models.IndustryGeneric}: "Information held by {component} may be disclosed (residual risk {residual}). {impact}",
	{models.StrideDenialOfService, models.IndustryGeneric}:       "{component} may be rendered unavailable (residual risk {residual}). {impact}",
	{models.StrideElevationOfPrivilege, models.IndustryGeneric}:  "{component} may be abused to gain elevated privileges (residual risk {residual}). {impact}",

	{models.StrideSpoofing, models.IndustryFinance}:              "Impersonation of {component} could enable fraudulent transactions and regulatory exposure (residual risk {residual}). {impact}",
	{models.StrideTampering, models.IndustryFinance}:             "Tampering with {component} could alter financial records and break transaction integrity (residual risk {residual}). {impact}",
	{models.StrideInformationDisclosure, models.IndustryFinance}: "Disclosure from {component} could leak cardholder or account data, triggering PCI and reporting obligations (residual risk {residual}). {impact}",
	{models.StrideRepudiation, models.IndustryFinance}:           "Unattributable actions against {component} could defeat transaction auditability required by regulators (residual risk {residual}). {impact}",

	{models.StrideInformationDisclosure, models.IndustryHealthcare}: "Disclosure from {component} could expose protected health information, a reportable breach under HIPAA (residual risk {residual}). {impact}",
	{models.StrideTampering, models.IndustryHealthcare}:             "Tampering with {component} could corrupt clinical records and endanger patient safety (residual risk {residual}). {impact}",
	{models.StrideDenialOfService, models.IndustryHealthcare}:       "Loss of {component} could interrupt care delivery workflows (residual risk {residual}). {impact}",
}

// StatementGenerator renders a business-facing risk statement from computed
// fields and the run's industry profile. It only produces display text and
// never changes risk values.
type StatementGenerator struct {
	logger   logger.Logger
	industry models.IndustryProfile
}

// NewStatementGenerator creates a generator for the given industry profile.
func NewStatementGenerator(industry models.IndustryProfile) *StatementGenerator {
	return NewStatementGeneratorWithLogger(industry, logger.GetGlobalLogger())
}

// NewStatementGeneratorWithLogger creates a generator with a custom logger.
func NewStatementGeneratorWithLogger(industry models.IndustryProfile, log logger.Logger) *StatementGenerator {
	return &StatementGenerator{
		industry: industry,
		logger:   log,
	}
}

// Apply renders the risk statement for a surviving threat, falling back to
// the generic template when no industry-specific one exists.
func (g *StatementGenerator) Apply(t *models.Threat) {
	if t.Status != models.StatusActive {
		return
	}

	template, ok := statementTemplates[templateKey{t.StrideCategory, g.industry}]
	if !ok {
		template = statementTemplates[templateKey{t.StrideCategory, models.IndustryGeneric}]
	}
	if template == "" {
		g.logger.Warn("No statement template for category", "category", t.StrideCategory)
		return
	}

	replacer := strings.NewReplacer(
		"{component}", t.ComponentName(),
		"{residual}", fmt.Sprintf("%.1f", t.ResidualRisk),
		"{impact}", t.BusinessImpactStatement,
	)
	t.RiskStatement = replacer.Replace(template)
}
