package refine

import (
	"fmt"
	"strings"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// Deduplicator clusters threats that are conceptually the same finding
// expressed differently and collapses each cluster to one representative.
type Deduplicator struct {
	logger    logger.Logger
	threshold float64
}

// NewDeduplicator creates a deduplicator with the given similarity
// threshold.
func NewDeduplicator(threshold float64) *Deduplicator {
	return NewDeduplicatorWithLogger(threshold, logger.GetGlobalLogger())
}

// NewDeduplicatorWithLogger creates a deduplicator with a custom logger.
func NewDeduplicatorWithLogger(threshold float64, log logger.Logger) *Deduplicator {
	return &Deduplicator{
		threshold: threshold,
		logger:    log,
	}
}

// Cluster runs a density-based clustering pass over all active threats with
// cosine similarity as the neighborhood relation and a minimum cluster size
// of one, so singleton findings are valid clusters rather than noise.
// Threats in different STRIDE categories are never placed in the same
// cluster regardless of textual similarity. Within each multi-member
// cluster the representative is the member with the highest inherent risk
// (ties: shortest id, then lexicographic); it absorbs the union of cited
// CVEs and mitigation suggestions, and the other members become merged.
//
// Threats must be in input order; clustering visits them in that order so
// cluster ids are stable across runs.
func (d *Deduplicator) Cluster(threats []*models.Threat) []models.Cluster {
	active := make([]*models.Threat, 0, len(threats))
	for _, t := range threats {
		if t.Status == models.StatusActive {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil
	}

	embeddings := make([][]float64, len(active))
	for i, t := range active {
		embeddings[i] = embed(embedText(t))
	}

	assigned := make([]bool, len(active))
	var clusters []models.Cluster

	for i := range active {
		if assigned[i] {
			continue
		}

		// Expand the neighborhood transitively, DBSCAN-style with
		// minPts=1, restricted to the seed's STRIDE category.
		members := []int{i}
		assigned[i] = true
		for cursor := 0; cursor < len(members); cursor++ {
			current := members[cursor]
			for j := range active {
				if assigned[j] {
					continue
				}
				if active[j].StrideCategory != active[i].StrideCategory {
					continue
				}
				if cosine(embeddings[current], embeddings[j]) >= d.threshold {
					assigned[j] = true
					members = append(members, j)
				}
			}
		}

		clusters = append(clusters, d.collapse(active, members, len(clusters)+1))
	}

	d.logger.Debug("Deduplication complete",
		"active_threats", len(active), "clusters", len(clusters))
	return clusters
}

// collapse picks the representative, merges member information into it, and
// transitions the remaining members to merged.
func (d *Deduplicator) collapse(active []*models.Threat, members []int, ordinal int) models.Cluster {
	repIdx := members[0]
	for _, idx := range members[1:] {
		if betterRepresentative(active[idx], active[repIdx]) {
			repIdx = idx
		}
	}

	cluster := models.Cluster{
		ID:               fmt.Sprintf("c-%03d", ordinal),
		RepresentativeID: active[repIdx].ID,
	}

	representative := active[repIdx]
	for _, idx := range members {
		member := active[idx]
		member.ClusterID = cluster.ID
		cluster.MemberThreatIDs = append(cluster.MemberThreatIDs, member.ID)

		if member == representative {
			continue
		}

		// No information is silently dropped on merge.
		representative.AddCitedCVEs(member.CitedCVEs...)
		representative.AddMitigationSuggestions(member.MitigationSuggestions...)
		member.Status = models.StatusMerged

		d.logger.Debug("Threat merged into representative",
			"threat", member.ID, "representative", representative.ID, "cluster", cluster.ID)
	}

	return cluster
}

// betterRepresentative reports whether a should represent the cluster over
// b: higher inherent risk wins, ties broken by shortest then
// lexicographically smallest id.
func betterRepresentative(a, b *models.Threat) bool {
	if a.InherentRiskScore != b.InherentRiskScore {
		return a.InherentRiskScore > b.InherentRiskScore
	}
	if len(a.ID) != len(b.ID) {
		return len(a.ID) < len(b.ID)
	}
	return a.ID < b.ID
}

// embedText is the text clustered for a threat: canonical component, STRIDE
// category, and description.
func embedText(t *models.Threat) string {
	return strings.Join([]string{t.ComponentName(), string(t.StrideCategory), t.Description}, " ")
}
