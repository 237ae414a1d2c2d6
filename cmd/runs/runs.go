// Package runs implements the runs command for viewing previous
// refinement runs.
package runs

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/refractsec/refract/internal/storage"
	"github.com/refractsec/refract/pkg/logger"
)

// Options represents runs command options.
type Options struct {
	Industry string
	DataDir  string
	Format   string
	Limit    int
}

// Run executes the runs command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	fs.StringVar(&opts.Industry, "industry", "", "Filter by industry profile")
	fs.IntVar(&opts.Limit, "limit", 10, "Maximum number of runs to show")
	fs.StringVar(&opts.DataDir, "data-dir", "data", "Data directory path")
	fs.StringVar(&opts.Format, "format", "table", "Output format (table, json)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: refract runs [options]

List previous refinement runs.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  refract runs
  refract runs --industry finance
  refract runs --limit 20
  refract runs --format json`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	store := storage.NewStorage(opts.DataDir)

	runs, err := store.ListRuns(opts.Industry, opts.Limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		if opts.Industry != "" {
			logger.Info("No runs found for industry", "industry", opts.Industry)
		} else {
			logger.Info("No runs found")
		}
		return nil
	}

	switch opts.Format {
	case "json":
		return displayJSON(runs)
	default:
		return displayTable(runs)
	}
}

func displayTable(runs []storage.RunInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "ID\tINDUSTRY\tINPUT\tACTIVE\tSUPPRESSED\tMERGED\tDURATION"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 80)); err != nil {
		return fmt.Errorf("writing separator: %w", err)
	}

	for _, run := range runs {
		duration := run.EndTime.Sub(run.StartTime).Round(time.Second)

		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.Industry,
			run.Summary.TotalInput,
			run.Summary.Active,
			run.Summary.Suppressed,
			run.Summary.Merged,
			duration,
		); err != nil {
			return fmt.Errorf("writing run entry: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table writer: %w", err)
	}

	return nil
}

func displayJSON(runs []storage.RunInfo) error {
	for _, run := range runs {
		fmt.Printf(`{
  "id": "%s",
  "run_id": "%s",
  "industry": "%s",
  "start_time": "%s",
  "end_time": "%s",
  "active": %d,
  "path": "%s"
}
`, run.ID, run.RunID, run.Industry,
			run.StartTime.Format(time.RFC3339),
			run.EndTime.Format(time.RFC3339),
			run.Summary.Active,
			run.Path)
	}
	return nil
}
