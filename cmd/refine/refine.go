// Package refine implements the refine command, the main entry into the
// refinement pipeline.
package refine

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/refractsec/refract/internal/config"
	"github.com/refractsec/refract/internal/feed"
	"github.com/refractsec/refract/internal/feed/cache"
	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/internal/refine"
	"github.com/refractsec/refract/internal/storage"
	"github.com/refractsec/refract/pkg/logger"
	"github.com/refractsec/refract/pkg/pathutil"
)

// Options represents refine command options.
type Options struct {
	ConfigPath    string
	ThreatsPath   string
	InventoryPath string
	OutputDir     string
	DataDir       string
	NoCache       bool
}

// Run executes the refine command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("refine", flag.ExitOnError)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&opts.ThreatsPath, "threats", "", "Path to threat batch JSON file (required)")
	fs.StringVar(&opts.InventoryPath, "inventory", "", "Path to component inventory JSON file")
	fs.StringVar(&opts.OutputDir, "output", "", "Output directory (default: <data-dir>/runs/<timestamp>)")
	fs.StringVar(&opts.DataDir, "data-dir", "data", "Data directory path")
	fs.BoolVar(&opts.NoCache, "no-cache", false, "Use an in-memory CVE cache instead of the persistent one")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: refract refine [options]

Refine a raw threat batch into a report.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  refract refine --threats threats.json
  refract refine --threats threats.json --inventory inventory.json --config refract.yaml
  refract refine --threats threats.json --output reports/acme --no-cache`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.ThreatsPath == "" {
		fs.Usage()
		return fmt.Errorf("--threats is required")
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	store := storage.NewStorage(opts.DataDir)

	batch, err := store.LoadThreatBatch(opts.ThreatsPath)
	if err != nil {
		return err
	}

	var inventory []models.Component
	if opts.InventoryPath != "" {
		inventory, err = store.LoadInventory(opts.InventoryPath)
		if err != nil {
			return err
		}
	}

	var resolver refine.CVEResolver
	if !cfg.Feed.Disabled {
		recordCache, cacheErr := openCache(cfg, opts)
		if cacheErr != nil {
			return cacheErr
		}
		defer func() {
			if closeErr := recordCache.Close(); closeErr != nil {
				logger.Warn("Failed to close feed cache", "error", closeErr)
			}
		}()

		client := feed.NewClient(cfg.Feed)
		resolver = feed.NewResolver(client, recordCache, cfg.Feed.CacheTTL())
	}

	orchestrator := refine.NewOrchestrator(cfg, resolver)
	report, err := orchestrator.Refine(context.Background(), batch, inventory)
	if err != nil {
		return fmt.Errorf("refining batch: %w", err)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = store.RunDirectory(report.StartTime)
	}
	if err := store.SaveReport(outputDir, report); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	printSummary(report, outputDir)
	return nil
}

// loadConfig loads the run configuration, falling back to defaults when no
// path is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}

	validPath, err := pathutil.ValidateConfigPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	return config.LoadConfig(validPath)
}

// openCache opens the CVE record cache: persistent SQLite by default, in
// memory with --no-cache.
func openCache(cfg *config.Config, opts *Options) (cache.Cache, error) {
	if opts.NoCache {
		return cache.NewMemoryCache(), nil
	}

	cachePath := cfg.Feed.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(opts.DataDir, "feedcache.db")
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	sqliteCache, err := cache.NewSQLiteCache(cachePath)
	if err != nil {
		return nil, fmt.Errorf("opening feed cache: %w", err)
	}
	return sqliteCache, nil
}

func printSummary(report *models.RefinedReport, outputDir string) {
	fmt.Printf("Refinement run %s complete\n", report.RunID)
	fmt.Printf("  Input threats: %d\n", report.Summary.TotalInput)
	fmt.Printf("  Active:        %d\n", report.Summary.Active)
	fmt.Printf("  Suppressed:    %d\n", report.Summary.Suppressed)
	fmt.Printf("  Merged:        %d\n", report.Summary.Merged)
	fmt.Printf("  Rejected:      %d\n", report.Summary.Rejected)
	if len(report.Warnings) > 0 {
		fmt.Printf("  Warnings:      %d (see warnings.json)\n", len(report.Warnings))
	}
	fmt.Printf("Report written to %s\n", outputDir)
}
