// Package main is the entry point for the Refract threat refinement CLI.
// Refract takes a raw threat batch produced by upstream analysis, runs it
// through the refinement pipeline (component standardization, control-based
// suppression, CVE relevance filtering, semantic deduplication, residual
// risk calculation, risk statement generation), and writes a refined report.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/refractsec/refract/cmd/feedcache"
	"github.com/refractsec/refract/cmd/refine"
	"github.com/refractsec/refract/cmd/runs"
	"github.com/refractsec/refract/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var (
		debug       bool
		logFormat   string
		showVersion bool
	)

	globalFlags := flag.NewFlagSet("refract", flag.ExitOnError)
	globalFlags.BoolVar(&debug, "debug", false, "Enable debug logging")
	globalFlags.StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	globalFlags.BoolVar(&showVersion, "version", false, "Show version information")

	if err := globalFlags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("refract version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	logger.SetupLogger(debug, logFormat)

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "refine":
		if err := refine.Run(commandArgs); err != nil {
			logger.Error("refinement failed", "error", err)
			os.Exit(1)
		}
	case "runs":
		if err := runs.Run(commandArgs); err != nil {
			logger.Error("listing runs failed", "error", err)
			os.Exit(1)
		}
	case "feedcache":
		if err := feedcache.Run(commandArgs); err != nil {
			logger.Error("feed cache operation failed", "error", err)
			os.Exit(1)
		}
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Refract Threat Refinement Engine

Usage:
  refract [global flags] <command> [command flags]

Commands:
  refine     Refine a raw threat batch into a report
  runs       List previous refinement runs
  feedcache  Inspect or purge the vulnerability feed cache
  help       Show this help message

Global Flags:
  --debug         Enable debug logging
  --log-format    Log format (text or json) (default: text)
  --version       Show version information

Examples:
  refract refine --threats threats.json --inventory inventory.json --config refract.yaml
  refract runs --industry finance --limit 10
  refract feedcache stats --data-dir data

Use "refract <command> --help" for more information about a command.`)
}
