package refine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/refractsec/refract/internal/config"
	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// CVEResolver resolves cited CVE ids into vulnerability records.
// *feed.Resolver satisfies it; a nil resolver disables the CVE relevance
// stage.
type CVEResolver interface {
	Resolve(ctx context.Context, cveIDs []string) (map[string]*models.VulnerabilityRecord, []string)
}

// Orchestrator sequences the refinement pipeline over a threat batch:
// standardization, control suppression, and CVE filtering run per-threat
// across a worker pool; deduplication is a single-threaded barrier; risk
// calculation and statement rendering run per-survivor. Side inputs are
// read-only for the duration of a run, and every stage is a pure function
// of its inputs, so re-running on identical inputs produces identical
// output.
type Orchestrator struct {
	cfg      *config.Config
	resolver CVEResolver
	logger   logger.Logger
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. resolver may be nil when no
// vulnerability feed is configured; the CVE relevance stage then degrades
// to a no-op.
func NewOrchestrator(cfg *config.Config, resolver CVEResolver) *Orchestrator {
	return NewOrchestratorWithLogger(cfg, resolver, logger.GetGlobalLogger())
}

// NewOrchestratorWithLogger creates an orchestrator with a custom logger.
func NewOrchestratorWithLogger(cfg *config.Config, resolver CVEResolver, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		resolver: resolver,
		logger:   log,
		now:      time.Now,
	}
}

// SetClock overrides the orchestrator's clock, for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Refine runs the full pipeline over a batch and returns the refined
// report: every input threat with its terminal status, sorted descending by
// residual risk with ties broken by id. The batch either completes or fails
// as a whole; only invariant violations (pipeline-ordering defects) produce
// an error.
func (o *Orchestrator) Refine(ctx context.Context, batch []models.Threat, inventory []models.Component) (*models.RefinedReport, error) {
	report := &models.RefinedReport{
		StartTime: o.now(),
		RunID:     uuid.New().String(),
		Industry:  o.cfg.IndustryProfile(),
		Summary: models.RefineSummary{
			ByStride:   make(map[models.StrideCategory]int),
			TotalInput: len(batch),
		},
	}

	components := o.ingestInventory(inventory, report)
	threats := o.ingestBatch(batch, report)

	records := o.resolveRecords(ctx, threats, report)
	runNow := o.now()

	standardizer := NewStandardizerWithLogger(components, o.cfg.Thresholds.ComponentMatch, o.logger)
	suppressor := NewSuppressorWithLogger(o.cfg.Controls, o.logger)
	cveFilter := NewCVEFilterWithLogger(records, o.cfg.StalenessWindow(), runNow, o.logger)

	// Per-threat stages: each worker owns one threat at a time and side
	// inputs are read-only, so no locking is needed.
	if err := o.forEachThreat(ctx, threats, func(t *models.Threat) error {
		standardizer.Standardize(t)
		suppressor.Apply(t)
		cveFilter.Apply(t)
		return nil
	}); err != nil {
		return nil, err
	}

	// Deduplication needs a global view of all embeddings: single-threaded
	// barrier between the per-threat and per-cluster stages.
	deduper := NewDeduplicatorWithLogger(o.cfg.Thresholds.ClusterSimilarity, o.logger)
	report.Clusters = deduper.Cluster(threats)

	componentIndex := models.ComponentIndex(components)
	calculator := NewRiskCalculatorWithLogger(
		o.cfg.Controls, componentIndex, records, o.cfg.Risk, o.cfg.StalenessWindow(), runNow, o.logger)
	statements := NewStatementGeneratorWithLogger(report.Industry, o.logger)

	var survivors []*models.Threat
	for _, t := range threats {
		if t.Status == models.StatusActive {
			survivors = append(survivors, t)
		}
	}

	if err := o.forEachThreat(ctx, survivors, func(t *models.Threat) error {
		if err := calculator.Apply(t); err != nil {
			return err
		}
		statements.Apply(t)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("risk calculation: %w", err)
	}

	o.finalize(threats, report)
	report.EndTime = o.now()

	o.logger.Info("Refinement run complete",
		"run_id", report.RunID,
		"input", report.Summary.TotalInput,
		"active", report.Summary.Active,
		"suppressed", report.Summary.Suppressed,
		"merged", report.Summary.Merged,
		"rejected", report.Summary.Rejected,
	)
	return report, nil
}

// ingestInventory validates the component inventory; malformed components
// are excluded and logged, the rest of the run proceeds.
func (o *Orchestrator) ingestInventory(inventory []models.Component, report *models.RefinedReport) []models.Component {
	valid := make([]models.Component, 0, len(inventory))
	for i := range inventory {
		if err := inventory[i].Validate(); err != nil {
			o.logger.Warn("Invalid component excluded", "error", err)
			report.Warnings = append(report.Warnings, "invalid component excluded: "+err.Error())
			continue
		}
		valid = append(valid, inventory[i])
	}
	return valid
}

// ingestBatch normalizes raw threat records into the strict schema.
// Loosely-typed upstream fields are normalized here; anything that still
// fails validation is excluded and logged with its id, and the rest of the
// batch proceeds.
func (o *Orchestrator) ingestBatch(batch []models.Threat, report *models.RefinedReport) []*models.Threat {
	threats := make([]*models.Threat, 0, len(batch))
	for i := range batch {
		t := batch[i] // copy: inputs are never mutated

		if normalized := models.NormalizeStride(string(t.StrideCategory)); normalized != "" {
			t.StrideCategory = normalized
		}
		if t.ID == "" {
			t.ID = models.GenerateThreatID(t.ComponentRef, t.StrideCategory, t.Description)
		}
		t.Status = models.StatusActive
		t.SuppressedReason = ""
		t.ClusterID = ""

		// Re-assert cited CVE ordered-set semantics on loose input.
		cves := t.CitedCVEs
		t.CitedCVEs = nil
		t.AddCitedCVEs(cves...)

		if err := t.Validate(); err != nil {
			o.logger.Warn("Invalid threat excluded", "id", t.ID, "error", err)
			report.Warnings = append(report.Warnings, "invalid threat excluded: "+err.Error())
			report.Summary.Rejected++
			continue
		}

		threats = append(threats, &t)
	}
	return threats
}

// resolveRecords gathers the batch's cited CVE ids and resolves them
// through the feed, once per run. With no resolver configured the CVE
// relevance stage degrades to a no-op.
func (o *Orchestrator) resolveRecords(ctx context.Context, threats []*models.Threat, report *models.RefinedReport) map[string]*models.VulnerabilityRecord {
	if o.resolver == nil {
		o.logger.Debug("No vulnerability feed configured, skipping CVE relevance stage")
		return nil
	}

	seen := make(map[string]bool)
	var cveIDs []string
	for _, t := range threats {
		for _, cveID := range t.CitedCVEs {
			if !seen[cveID] {
				seen[cveID] = true
				cveIDs = append(cveIDs, cveID)
			}
		}
	}

	records, warnings := o.resolver.Resolve(ctx, cveIDs)
	report.Warnings = append(report.Warnings, warnings...)
	return records
}

// forEachThreat runs fn over the threats with a worker pool. The first
// error aborts the pool and is returned.
func (o *Orchestrator) forEachThreat(ctx context.Context, threats []*models.Threat, fn func(*models.Threat) error) error {
	if len(threats) == 0 {
		return nil
	}

	workers := o.cfg.Workers
	if workers > len(threats) {
		workers = len(threats)
	}

	jobs := make(chan *models.Threat, len(threats))
	errs := make(chan error, len(threats))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				default:
				}
				if err := fn(t); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	for _, t := range threats {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// finalize orders the report and fills in the summary. All threats are
// kept, suppressed and merged included, so the run stays auditable; sorting
// is residual risk descending with ties broken by id.
func (o *Orchestrator) finalize(threats []*models.Threat, report *models.RefinedReport) {
	sorted := make([]models.Threat, 0, len(threats))
	for _, t := range threats {
		sorted = append(sorted, *t)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ResidualRisk != sorted[j].ResidualRisk {
			return sorted[i].ResidualRisk > sorted[j].ResidualRisk
		}
		return sorted[i].ID < sorted[j].ID
	})
	report.Threats = sorted

	for i := range sorted {
		switch sorted[i].Status {
		case models.StatusActive:
			report.Summary.Active++
			report.Summary.ByStride[sorted[i].StrideCategory]++
		case models.StatusSuppressed:
			report.Summary.Suppressed++
		case models.StatusMerged:
			report.Summary.Merged++
		}
	}
}
