// Package models contains data structures for Refract threat refinement.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ThreatStatus tracks a threat through the refinement pipeline. A threat
// starts active; suppressed and merged are terminal.
type ThreatStatus string

// Threat status values.
const (
	StatusActive     ThreatStatus = "active"
	StatusSuppressed ThreatStatus = "suppressed"
	StatusMerged     ThreatStatus = "merged"
)

// Threat represents a single security finding moving through refinement.
// The derived fields are only populated for threats that are still active
// when the risk calculator runs.
type Threat struct {
	ID                    string         `json:"id"`
	ComponentRef          string         `json:"component_ref"`
	CanonicalComponent    string         `json:"canonical_component,omitempty"`
	UnmatchedComponent    bool           `json:"unmatched_component,omitempty"`
	StrideCategory        StrideCategory `json:"stride_category"`
	Description           string         `json:"description"`
	MitigationSuggestions []string       `json:"mitigation_suggestions,omitempty"`
	CitedCVEs             []string       `json:"cited_cves,omitempty"`
	InherentRiskScore     float64        `json:"inherent_risk_score"`
	Status                ThreatStatus   `json:"status"`
	SuppressedReason      string         `json:"suppressed_reason,omitempty"`
	ClusterID             string         `json:"cluster_id,omitempty"`

	// Derived fields, populated by the risk calculator and statement
	// generator for surviving threats only.
	Exploitability          Exploitability     `json:"exploitability,omitempty"`
	MitigationMaturity      MitigationMaturity `json:"mitigation_maturity,omitempty"`
	ResidualRisk            float64            `json:"residual_risk"`
	BusinessImpactStatement string             `json:"business_impact_statement,omitempty"`
	RiskStatement           string             `json:"risk_statement,omitempty"`
}

// GenerateThreatID creates a stable, deterministic ID for a threat.
// Identical inputs always produce the same ID, which keeps re-runs of the
// pipeline byte-for-byte reproducible for batches that arrive without IDs.
func GenerateThreatID(componentRef string, category StrideCategory, description string) string {
	core := fmt.Sprintf("%s:%s:%s", componentRef, category, description)
	hash := sha256.Sum256([]byte(core))
	return hex.EncodeToString(hash[:8])
}

// Validate checks that a threat record has all fields the pipeline requires.
func (t *Threat) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("threat missing required field: id")
	}
	if t.ComponentRef == "" {
		return fmt.Errorf("threat %s missing required field: component_ref", t.ID)
	}
	if t.Description == "" {
		return fmt.Errorf("threat %s missing required field: description", t.ID)
	}
	if !IsValidStride(t.StrideCategory) {
		return fmt.Errorf("threat %s has invalid stride_category: %q", t.ID, t.StrideCategory)
	}
	if t.InherentRiskScore < 0 {
		return fmt.Errorf("threat %s has negative inherent_risk_score", t.ID)
	}
	return nil
}

// Suppress transitions an active threat into the suppressed terminal state.
// Suppressing an already-terminal threat is a no-op.
func (t *Threat) Suppress(reason string) {
	if t.Status != StatusActive {
		return
	}
	t.Status = StatusSuppressed
	t.SuppressedReason = reason
}

// AddCitedCVEs appends CVE identifiers, preserving order and skipping
// duplicates.
func (t *Threat) AddCitedCVEs(cves ...string) {
	seen := make(map[string]bool, len(t.CitedCVEs))
	for _, c := range t.CitedCVEs {
		seen[c] = true
	}
	for _, c := range cves {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		t.CitedCVEs = append(t.CitedCVEs, c)
	}
}

// AddMitigationSuggestions appends mitigation suggestions, preserving order
// and skipping duplicates.
func (t *Threat) AddMitigationSuggestions(suggestions ...string) {
	seen := make(map[string]bool, len(t.MitigationSuggestions))
	for _, s := range t.MitigationSuggestions {
		seen[s] = true
	}
	for _, s := range suggestions {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		t.MitigationSuggestions = append(t.MitigationSuggestions, s)
	}
}

// ComponentName returns the canonical component name when standardization
// matched one, otherwise the raw reference.
func (t *Threat) ComponentName() string {
	if t.CanonicalComponent != "" {
		return t.CanonicalComponent
	}
	return t.ComponentRef
}
