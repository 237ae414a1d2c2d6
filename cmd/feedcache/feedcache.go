// Package feedcache implements the feedcache command for inspecting and
// maintaining the persistent CVE record cache.
package feedcache

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/refractsec/refract/internal/feed/cache"
	"github.com/refractsec/refract/pkg/logger"
)

// Options represents feedcache command options.
type Options struct {
	DataDir   string
	CachePath string
	OlderThan int
}

// Run executes the feedcache command.
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: stats or purge")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "stats":
		return runStats(subArgs)
	case "purge":
		return runPurge(subArgs)
	default:
		return fmt.Errorf("unknown subcommand: %s", subcommand)
	}
}

func runStats(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("feedcache stats", flag.ExitOnError)
	fs.StringVar(&opts.DataDir, "data-dir", "data", "Data directory path")
	fs.StringVar(&opts.CachePath, "cache-path", "", "Cache file path (default: <data-dir>/feedcache.db)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := openCache(opts)
	if err != nil {
		return err
	}
	defer closeCache(c)

	count, err := c.Count(context.Background())
	if err != nil {
		return fmt.Errorf("counting cached records: %w", err)
	}

	fmt.Printf("Cached vulnerability records: %d\n", count)
	return nil
}

func runPurge(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("feedcache purge", flag.ExitOnError)
	fs.StringVar(&opts.DataDir, "data-dir", "data", "Data directory path")
	fs.StringVar(&opts.CachePath, "cache-path", "", "Cache file path (default: <data-dir>/feedcache.db)")
	fs.IntVar(&opts.OlderThan, "older-than", 0, "Only purge entries fetched more than this many hours ago")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := openCache(opts)
	if err != nil {
		return err
	}
	defer closeCache(c)

	removed, err := c.Purge(context.Background(), time.Duration(opts.OlderThan)*time.Hour)
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}

	fmt.Printf("Purged %d cached records\n", removed)
	return nil
}

func openCache(opts *Options) (cache.Cache, error) {
	cachePath := opts.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(opts.DataDir, "feedcache.db")
	}

	if _, err := os.Stat(cachePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no feed cache at %s", cachePath)
	}

	c, err := cache.NewSQLiteCache(cachePath)
	if err != nil {
		return nil, fmt.Errorf("opening feed cache: %w", err)
	}
	return c, nil
}

func closeCache(c cache.Cache) {
	if err := c.Close(); err != nil {
		logger.Warn("Failed to close feed cache", "error", err)
	}
}
