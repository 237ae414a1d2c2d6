// Package refine implements the threat refinement pipeline: component name
// standardization, control-based suppression, CVE relevance filtering,
// semantic deduplication, risk calculation, and risk statement rendering,
// sequenced by the Orchestrator.
package refine

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// Standardizer maps loosely-worded component references in threats onto
// canonical component names from the inventory.
type Standardizer struct {
	logger    logger.Logger
	caser     cases.Caser
	inventory []models.Component
	threshold float64
}

// NewStandardizer creates a standardizer over the component inventory.
func NewStandardizer(inventory []models.Component, threshold float64) *Standardizer {
	return NewStandardizerWithLogger(inventory, threshold, logger.GetGlobalLogger())
}

// NewStandardizerWithLogger creates a standardizer with a custom logger.
func NewStandardizerWithLogger(inventory []models.Component, threshold float64, log logger.Logger) *Standardizer {
	return &Standardizer{
		inventory: inventory,
		threshold: threshold,
		caser:     cases.Fold(),
		logger:    log,
	}
}

// Standardize resolves the threat's component reference against the
// inventory. Below-threshold matches leave the reference unchanged and flag
// the threat as unmatched; unmatched threats continue through the pipeline
// but are exempt from control-based suppression.
func (s *Standardizer) Standardize(t *models.Threat) {
	if len(s.inventory) == 0 {
		t.UnmatchedComponent = true
		return
	}

	refTokens := s.normalizeTokens(t.ComponentRef)

	best := -1.0
	bestName := ""
	// Inventory order breaks ties: the first component with the top score
	// wins, which keeps runs stable.
	for _, component := range s.inventory {
		score := diceSimilarity(refTokens, s.normalizeTokens(component.CanonicalName))
		if score > best {
			best = score
			bestName = component.CanonicalName
		}
	}

	if best < s.threshold {
		t.UnmatchedComponent = true
		s.logger.Debug("No confident component match",
			"threat", t.ID, "ref", t.ComponentRef, "best_score", best)
		return
	}

	t.CanonicalComponent = bestName
}

// normalizeTokens case-folds and whitespace-normalizes a component
// reference into its token set.
func (s *Standardizer) normalizeTokens(ref string) []string {
	return strings.Fields(s.caser.String(ref))
}

// diceSimilarity computes the Sørensen-Dice coefficient over two token
// sets: 2|A∩B| / (|A|+|B|). Symmetric and deterministic.
func diceSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, tok := range a {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tok := range b {
		setB[tok] = true
	}

	overlap := 0
	for tok := range setA {
		if setB[tok] {
			overlap++
		}
	}

	return 2 * float64(overlap) / float64(len(setA)+len(setB))
}
