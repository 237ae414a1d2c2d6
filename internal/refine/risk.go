package refine

import (
	"fmt"
	"time"

	"github.com/refractsec/refract/internal/config"
	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// RiskCalculator populates the derived risk fields on surviving threats:
// exploitability, mitigation maturity, residual risk, and the business
// impact statement.
type RiskCalculator struct {
	records    map[string]*models.VulnerabilityRecord
	components map[string]models.Component
	now        time.Time
	logger     logger.Logger
	controls   []models.Control
	weights    config.RiskWeights
	staleness  time.Duration
}

// NewRiskCalculator creates a risk calculator over the run's side inputs.
func NewRiskCalculator(
	controls []models.Control,
	components map[string]models.Component,
	records map[string]*models.VulnerabilityRecord,
	weights config.RiskWeights,
	staleness time.Duration,
	now time.Time,
) *RiskCalculator {
	return NewRiskCalculatorWithLogger(controls, components, records, weights, staleness, now, logger.GetGlobalLogger())
}

// NewRiskCalculatorWithLogger creates a risk calculator with a custom logger.
func NewRiskCalculatorWithLogger(
	controls []models.Control,
	components map[string]models.Component,
	records map[string]*models.VulnerabilityRecord,
	weights config.RiskWeights,
	staleness time.Duration,
	now time.Time,
	log logger.Logger,
) *RiskCalculator {
	return &RiskCalculator{
		controls:   controls,
		components: components,
		records:    records,
		weights:    weights,
		staleness:  staleness,
		now:        now,
		logger:     log,
	}
}

// Apply computes the derived fields for one threat. A non-active threat
// reaching this stage is a pipeline-ordering defect, reported as an error
// the orchestrator treats as fatal.
func (r *RiskCalculator) Apply(t *models.Threat) error {
	if t.Status != models.StatusActive {
		return fmt.Errorf("threat %s reached risk calculation with status %q", t.ID, t.Status)
	}

	t.Exploitability = r.exploitability(t)
	t.MitigationMaturity = r.maturity(t)
	t.ResidualRisk = r.residualRisk(t.InherentRiskScore, t.Exploitability, t.MitigationMaturity)
	t.BusinessImpactStatement = r.businessImpact(t)

	return nil
}

// exploitability grades the threat's cited CVEs: high if any is in the
// known-exploited catalog, medium if any has a known record and is not
// stale, low otherwise.
func (r *RiskCalculator) exploitability(t *models.Threat) models.Exploitability {
	result := models.ExploitabilityLow
	for _, cveID := range t.CitedCVEs {
		record, known := r.records[cveID]
		if !known {
			continue
		}
		if record.InKnownExploitedCatalog {
			return models.ExploitabilityHigh
		}
		if !record.IsStale(r.now, r.staleness) {
			result = models.ExploitabilityMedium
		}
	}
	return result
}

// maturity grades existing control coverage for the threat's STRIDE
// category: strong when a control scoped to its component covers it,
// partial when only a global control does, none otherwise. This is
// independent of suppression; partial coverage counts here even though it
// was not enough to suppress.
func (r *RiskCalculator) maturity(t *models.Threat) models.MitigationMaturity {
	result := models.MaturityNone
	for i := range r.controls {
		control := &r.controls[i]
		if !control.Covers(t.StrideCategory) {
			continue
		}
		if !t.UnmatchedComponent && t.CanonicalComponent != "" && control.AppliesDirectly(t.CanonicalComponent) {
			return models.MaturityStrong
		}
		if control.IsGlobal() {
			result = models.MaturityPartial
		}
	}
	return result
}

// residualRisk combines inherent risk, exploitability, and mitigation
// maturity: exploitability modifiers multiply the inherent score, maturity
// modifiers divide it, and the result is clipped to the inherent scale.
// Monotonic by construction: higher exploitability never lowers residual
// risk and stronger maturity never raises it.
func (r *RiskCalculator) residualRisk(inherent float64, e models.Exploitability, m models.MitigationMaturity) float64 {
	risk := inherent

	switch e {
	case models.ExploitabilityHigh:
		risk *= r.weights.ExploitabilityHigh
	case models.ExploitabilityMedium:
		risk *= r.weights.ExploitabilityMedium
	}

	switch m {
	case models.MaturityStrong:
		risk /= r.weights.MaturityStrong
	case models.MaturityPartial:
		risk /= r.weights.MaturityPartial
	}

	if risk > r.weights.ScaleMax {
		risk = r.weights.ScaleMax
	}
	if risk < 0 {
		risk = 0
	}
	return risk
}

// businessImpact derives a short justification from the component type and
// STRIDE category.
func (r *RiskCalculator) businessImpact(t *models.Threat) string {
	componentType := models.ComponentProcess
	if component, ok := r.components[t.CanonicalComponent]; ok {
		componentType = component.Type
	}

	subject := componentSubject(componentType)
	switch t.StrideCategory {
	case models.StrideSpoofing:
		return fmt.Sprintf("Impersonation of %s undermines trust in every interaction it participates in.", subject)
	case models.StrideTampering:
		return fmt.Sprintf("Integrity loss in %s propagates corrupted data to downstream consumers.", subject)
	case models.StrideRepudiation:
		return fmt.Sprintf("Actions against %s cannot be attributed, weakening audit and dispute resolution.", subject)
	case models.StrideInformationDisclosure:
		return fmt.Sprintf("Confidentiality loss in %s exposes data to parties with no need to know.", subject)
	case models.StrideDenialOfService:
		return fmt.Sprintf("Loss of availability of %s interrupts the business functions that depend on it.", subject)
	case models.StrideElevationOfPrivilege:
		return fmt.Sprintf("Privilege gains through %s grant attackers reach beyond their entry point.", subject)
	default:
		return fmt.Sprintf("Compromise of %s degrades the security posture of the system.", subject)
	}
}

func componentSubject(t models.ComponentType) string {
	switch t {
	case models.ComponentDataStore:
		return "this data store"
	case models.ComponentDataFlow:
		return "this data flow"
	case models.ComponentExternalEntity:
		return "this external entity"
	default:
		return "this process"
	}
}
