// Package storage handles persistence of refinement runs and their inputs.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
	"github.com/refractsec/refract/pkg/pathutil"
)

// Storage handles saving and loading refinement runs.
type Storage struct {
	logger  logger.Logger
	baseDir string
}

// NewStorage creates a new storage instance rooted at baseDir.
func NewStorage(baseDir string) *Storage {
	return NewStorageWithLogger(baseDir, logger.GetGlobalLogger())
}

// NewStorageWithLogger creates a new storage instance with a custom logger.
func NewStorageWithLogger(baseDir string, log logger.Logger) *Storage {
	return &Storage{
		baseDir: baseDir,
		logger:  log,
	}
}

// SaveReport saves a refined report to the output directory: the report as
// JSON, the run-level warnings, and a human-readable run log.
func (s *Storage) SaveReport(outputDir string, report *models.RefinedReport) error {
	validOutputDir, err := pathutil.ValidatePath(outputDir)
	if err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}

	if mkErr := os.MkdirAll(validOutputDir, 0750); mkErr != nil {
		return fmt.Errorf("creating output directory: %w", mkErr)
	}

	reportPath, err := pathutil.JoinAndValidate(validOutputDir, "report.json")
	if err != nil {
		return fmt.Errorf("invalid report path: %w", err)
	}
	if saveErr := s.saveJSON(reportPath, report); saveErr != nil {
		return fmt.Errorf("saving report: %w", saveErr)
	}
	s.logger.Debug("Saved report", "path", reportPath, "threats", len(report.Threats))

	if len(report.Warnings) > 0 {
		warningsPath, warnErr := pathutil.JoinAndValidate(validOutputDir, "warnings.json")
		if warnErr != nil {
			return fmt.Errorf("invalid warnings path: %w", warnErr)
		}
		if saveErr := s.saveJSON(warningsPath, report.Warnings); saveErr != nil {
			return fmt.Errorf("saving warnings: %w", saveErr)
		}
		s.logger.Debug("Saved warnings", "path", warningsPath, "count", len(report.Warnings))
	}

	logPath, err := pathutil.JoinAndValidate(validOutputDir, "refine.log")
	if err != nil {
		s.logger.Warn("Invalid run log path", "error", err)
		return nil
	}
	if logErr := s.saveRunLog(logPath, report); logErr != nil {
		s.logger.Warn("Failed to save run log", "error", logErr)
	}

	return nil
}

// LoadReport loads a refined report from a run directory.
func (s *Storage) LoadReport(runDir string) (*models.RefinedReport, error) {
	validRunDir, err := pathutil.ValidatePath(runDir)
	if err != nil {
		return nil, fmt.Errorf("invalid run directory: %w", err)
	}

	reportPath, err := pathutil.JoinAndValidate(validRunDir, "report.json")
	if err != nil {
		return nil, fmt.Errorf("invalid report path: %w", err)
	}

	var report models.RefinedReport
	if loadErr := s.loadJSON(reportPath, &report); loadErr != nil {
		return nil, fmt.Errorf("loading report: %w", loadErr)
	}

	if report.Summary.ByStride == nil {
		report.Summary.ByStride = make(map[models.StrideCategory]int)
	}

	return &report, nil
}

// FindLatestRun finds the most recent run directory under the base
// directory. Run directories sort lexicographically by name, so
// timestamp-named directories come back newest last.
func (s *Storage) FindLatestRun() (string, error) {
	runsDir := filepath.Join(s.baseDir, "runs")

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no runs found")
		}
		return "", fmt.Errorf("reading runs directory: %w", err)
	}

	var latest string
	for _, entry := range entries {
		if entry.IsDir() {
			if latest == "" || entry.Name() > latest {
				latest = entry.Name()
			}
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no run directories found")
	}

	return filepath.Join(runsDir, latest), nil
}

// RunInfo provides summary information about a stored run.
type RunInfo struct {
	ID        string
	Path      string
	RunID     string
	Industry  models.IndustryProfile
	StartTime time.Time
	EndTime   time.Time
	Summary   models.RefineSummary
}

// ListRuns returns stored runs, newest first, optionally filtered by
// industry profile.
func (s *Storage) ListRuns(industry string, limit int) ([]RunInfo, error) {
	runsDir := filepath.Join(s.baseDir, "runs")

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("reading runs directory: %w", err)
	}

	var runs []RunInfo
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !entry.IsDir() {
			continue
		}

		report, err := s.LoadReport(filepath.Join(runsDir, entry.Name()))
		if err != nil {
			s.logger.Debug("Skipping invalid run directory", "dir", entry.Name(), "error", err)
			continue
		}

		if industry != "" && report.Industry != models.NormalizeIndustry(industry) {
			continue
		}

		runs = append(runs, RunInfo{
			ID:        entry.Name(),
			Path:      filepath.Join(runsDir, entry.Name()),
			RunID:     report.RunID,
			Industry:  report.Industry,
			StartTime: report.StartTime,
			EndTime:   report.EndTime,
			Summary:   report.Summary,
		})

		if limit > 0 && len(runs) >= limit {
			break
		}
	}

	return runs, nil
}

// RunDirectory returns the directory a new run should be written to, named
// after the run's start time.
func (s *Storage) RunDirectory(start time.Time) string {
	return filepath.Join(s.baseDir, "runs", start.UTC().Format("2006-01-02-150405"))
}

// LoadThreatBatch reads a raw threat batch from a JSON file.
func (s *Storage) LoadThreatBatch(path string) ([]models.Threat, error) {
	validPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid threat batch path: %w", err)
	}

	var batch []models.Threat
	if loadErr := s.loadJSON(validPath, &batch); loadErr != nil {
		return nil, fmt.Errorf("loading threat batch: %w", loadErr)
	}

	s.logger.Debug("Loaded threat batch", "path", validPath, "count", len(batch))
	return batch, nil
}

// LoadInventory reads a component inventory from a JSON file.
func (s *Storage) LoadInventory(path string) ([]models.Component, error) {
	validPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid inventory path: %w", err)
	}

	var inventory []models.Component
	if loadErr := s.loadJSON(validPath, &inventory); loadErr != nil {
		return nil, fmt.Errorf("loading inventory: %w", loadErr)
	}

	s.logger.Debug("Loaded component inventory", "path", validPath, "count", len(inventory))
	return inventory, nil
}

// saveJSON saves data as JSON to a file.
func (s *Storage) saveJSON(path string, data any) (err error) {
	// Path should already be validated by caller
	file, err := os.Create(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// loadJSON loads JSON data from a file.
func (s *Storage) loadJSON(path string, data any) (err error) {
	// Path should already be validated by caller
	file, err := os.Open(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return json.NewDecoder(file).Decode(data)
}

// saveRunLog saves a human-readable refinement run log.
func (s *Storage) saveRunLog(path string, report *models.RefinedReport) (err error) {
	// Path should already be validated by caller
	file, err := os.Create(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := func(format string, args ...any) error {
		_, err := fmt.Fprintf(file, format, args...)
		return err
	}

	if err := w("Refract Threat Refinement Run\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w("=============================\n\n"); err != nil {
		return fmt.Errorf("writing separator: %w", err)
	}
	if err := w("Run ID: %s\n", report.RunID); err != nil {
		return fmt.Errorf("writing run id: %w", err)
	}
	if err := w("Industry: %s\n", report.Industry); err != nil {
		return fmt.Errorf("writing industry: %w", err)
	}
	if err := w("Start Time: %s\n", report.StartTime.Format("2006-01-02 15:04:05")); err != nil {
		return fmt.Errorf("writing start time: %w", err)
	}
	if err := w("End Time: %s\n", report.EndTime.Format("2006-01-02 15:04:05")); err != nil {
		return fmt.Errorf("writing end time: %w", err)
	}
	if err := w("Duration: %s\n\n", report.EndTime.Sub(report.StartTime)); err != nil {
		return fmt.Errorf("writing duration: %w", err)
	}

	if err := w("Summary:\n"); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}
	if err := w("  Input Threats: %d\n", report.Summary.TotalInput); err != nil {
		return fmt.Errorf("writing input count: %w", err)
	}
	if err := w("  Active: %d\n", report.Summary.Active); err != nil {
		return fmt.Errorf("writing active count: %w", err)
	}
	if err := w("  Suppressed: %d\n", report.Summary.Suppressed); err != nil {
		return fmt.Errorf("writing suppressed count: %w", err)
	}
	if err := w("  Merged: %d\n", report.Summary.Merged); err != nil {
		return fmt.Errorf("writing merged count: %w", err)
	}
	if err := w("  Rejected: %d\n", report.Summary.Rejected); err != nil {
		return fmt.Errorf("writing rejected count: %w", err)
	}

	if err := w("\nActive by STRIDE Category:\n"); err != nil {
		return fmt.Errorf("writing stride header: %w", err)
	}
	for _, category := range models.AllStrideCategories() {
		if count, ok := report.Summary.ByStride[category]; ok && count > 0 {
			if err := w("  %s: %d\n", category, count); err != nil {
				return fmt.Errorf("writing stride count: %w", err)
			}
		}
	}

	if len(report.Warnings) > 0 {
		if err := w("\nWarnings:\n"); err != nil {
			return fmt.Errorf("writing warnings header: %w", err)
		}
		for _, warning := range report.Warnings {
			if err := w("  - %s\n", warning); err != nil {
				return fmt.Errorf("writing warning: %w", err)
			}
		}
	}

	return nil
}
