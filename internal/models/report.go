package models

import "time"

// IndustryProfile selects the statement template family for a run.
type IndustryProfile string

// Industry profiles.
const (
	IndustryGeneric    IndustryProfile = "generic"
	IndustryFinance    IndustryProfile = "finance"
	IndustryHealthcare IndustryProfile = "healthcare"
)

// NormalizeIndustry maps a loosely-cased industry string onto a known
// profile, falling back to the generic profile.
func NormalizeIndustry(s string) IndustryProfile {
	switch IndustryProfile(s) {
	case IndustryFinance, "Finance":
		return IndustryFinance
	case IndustryHealthcare, "Healthcare":
		return IndustryHealthcare
	default:
		return IndustryGeneric
	}
}

// Cluster is an ephemeral grouping of semantically equivalent threats,
// produced by deduplication and not persisted beyond a run's report.
type Cluster struct {
	ID               string   `json:"id"`
	MemberThreatIDs  []string `json:"member_threat_ids"`
	RepresentativeID string   `json:"representative_id"`
}

// RefineSummary provides high-level statistics for a refinement run.
type RefineSummary struct {
	ByStride   map[StrideCategory]int `json:"by_stride"`
	TotalInput int                    `json:"total_input"`
	Rejected   int                    `json:"rejected"`
	Active     int                    `json:"active"`
	Suppressed int                    `json:"suppressed"`
	Merged     int                    `json:"merged"`
}

// RefinedReport is the terminal state of a refinement run: every input
// threat with its final status, sorted descending by residual risk.
type RefinedReport struct {
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	RunID     string          `json:"run_id"`
	Industry  IndustryProfile `json:"industry"`
	Threats   []Threat        `json:"threats"`
	Clusters  []Cluster       `json:"clusters,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Summary   RefineSummary   `json:"summary"`
}
