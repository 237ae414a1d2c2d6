// Package config provides configuration loading and validation for Refract.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/refractsec/refract/internal/models"
)

// Default tuning values for the refinement pipeline.
const (
	DefaultComponentMatchThreshold = 0.6
	DefaultClusterSimilarity       = 0.85
	DefaultCVEStalenessYears       = 5
	DefaultCacheTTL                = 24 * time.Hour
	DefaultFeedTimeout             = 60 * time.Second
	DefaultFeedMaxRetries          = 3
	DefaultWorkers                 = 4
)

// Config is the complete, immutable configuration for a refinement run.
// It is passed explicitly into the orchestrator; nothing in the pipeline
// reads process-wide mutable state.
type Config struct {
	Feed       FeedConfig       `yaml:"feed,omitempty"`
	Thresholds ThresholdConfig  `yaml:"thresholds,omitempty"`
	Risk       RiskWeights      `yaml:"risk,omitempty"`
	Industry   string           `yaml:"industry,omitempty"`
	Controls   []models.Control `yaml:"controls,omitempty"`
	Workers    int              `yaml:"workers,omitempty"`
}

// ThresholdConfig holds the pipeline decision thresholds.
type ThresholdConfig struct {
	// ComponentMatch is the minimum similarity score (0-1) for the
	// standardizer to accept a canonical component match.
	ComponentMatch float64 `yaml:"component_match,omitempty"`

	// ClusterSimilarity is the minimum cosine similarity (0-1) for two
	// threats to land in the same deduplication cluster.
	ClusterSimilarity float64 `yaml:"cluster_similarity,omitempty"`

	// CVEStalenessYears is the age beyond which a CVE absent from the
	// known-exploited catalog is considered irrelevant.
	CVEStalenessYears int `yaml:"cve_staleness_years,omitempty"`
}

// FeedConfig configures the vulnerability feed client and its local cache.
type FeedConfig struct {
	CatalogURL     string `yaml:"catalog_url,omitempty"`
	CVEURL         string `yaml:"cve_url,omitempty"`
	CachePath      string `yaml:"cache_path,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	CacheTTLHours  int    `yaml:"cache_ttl_hours,omitempty"`
	MaxRetries     int    `yaml:"max_retries,omitempty"`
	Disabled       bool   `yaml:"disabled,omitempty"`
}

// Timeout returns the per-request feed timeout.
func (f FeedConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long a cached vulnerability record stays fresh.
func (f FeedConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLHours) * time.Hour
}

// RiskWeights parameterizes the residual risk formula. Exploitability
// modifiers multiply inherent risk; maturity modifiers divide it. All
// modifiers must be >= 1 so the combination stays monotonic.
type RiskWeights struct {
	ExploitabilityMedium float64 `yaml:"exploitability_medium,omitempty"`
	ExploitabilityHigh   float64 `yaml:"exploitability_high,omitempty"`
	MaturityPartial      float64 `yaml:"maturity_partial,omitempty"`
	MaturityStrong       float64 `yaml:"maturity_strong,omitempty"`

	// ScaleMax is the upper bound of the inherent risk scale; residual
	// risk is clipped to it.
	ScaleMax float64 `yaml:"scale_max,omitempty"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path validated by caller
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every tunable at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-valued tunables.
func (c *Config) ApplyDefaults() {
	if c.Thresholds.ComponentMatch == 0 {
		c.Thresholds.ComponentMatch = DefaultComponentMatchThreshold
	}
	if c.Thresholds.ClusterSimilarity == 0 {
		c.Thresholds.ClusterSimilarity = DefaultClusterSimilarity
	}
	if c.Thresholds.CVEStalenessYears == 0 {
		c.Thresholds.CVEStalenessYears = DefaultCVEStalenessYears
	}
	if c.Feed.TimeoutSeconds == 0 {
		c.Feed.TimeoutSeconds = int(DefaultFeedTimeout / time.Second)
	}
	if c.Feed.CacheTTLHours == 0 {
		c.Feed.CacheTTLHours = int(DefaultCacheTTL / time.Hour)
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = DefaultFeedMaxRetries
	}
	if c.Risk.ExploitabilityMedium == 0 {
		c.Risk.ExploitabilityMedium = 1.15
	}
	if c.Risk.ExploitabilityHigh == 0 {
		c.Risk.ExploitabilityHigh = 1.3
	}
	if c.Risk.MaturityPartial == 0 {
		c.Risk.MaturityPartial = 1.4
	}
	if c.Risk.MaturityStrong == 0 {
		c.Risk.MaturityStrong = 2.0
	}
	if c.Risk.ScaleMax == 0 {
		c.Risk.ScaleMax = 10.0
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Industry == "" {
		c.Industry = string(models.IndustryGeneric)
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Thresholds.ComponentMatch < 0 || c.Thresholds.ComponentMatch > 1 {
		return fmt.Errorf("thresholds.component_match must be in [0,1], got %v", c.Thresholds.ComponentMatch)
	}
	if c.Thresholds.ClusterSimilarity < 0 || c.Thresholds.ClusterSimilarity > 1 {
		return fmt.Errorf("thresholds.cluster_similarity must be in [0,1], got %v", c.Thresholds.ClusterSimilarity)
	}
	if c.Thresholds.CVEStalenessYears < 0 {
		return fmt.Errorf("thresholds.cve_staleness_years must be non-negative, got %d", c.Thresholds.CVEStalenessYears)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Risk.ExploitabilityMedium < 1 || c.Risk.ExploitabilityHigh < c.Risk.ExploitabilityMedium {
		return fmt.Errorf("risk exploitability modifiers must satisfy 1 <= medium <= high")
	}
	if c.Risk.MaturityPartial < 1 || c.Risk.MaturityStrong < c.Risk.MaturityPartial {
		return fmt.Errorf("risk maturity modifiers must satisfy 1 <= partial <= strong")
	}
	if c.Risk.ScaleMax <= 0 {
		return fmt.Errorf("risk.scale_max must be positive, got %v", c.Risk.ScaleMax)
	}

	for i := range c.Controls {
		ctrl := &c.Controls[i]
		if ctrl.Name == "" {
			return fmt.Errorf("controls[%d] missing name", i)
		}
		if len(ctrl.Coverage) == 0 {
			return fmt.Errorf("control %s has empty coverage", ctrl.Name)
		}
		for _, cov := range ctrl.Coverage {
			if !models.IsValidStride(cov) {
				return fmt.Errorf("control %s covers invalid stride category %q", ctrl.Name, cov)
			}
		}
		if len(ctrl.AppliesTo) == 0 {
			return fmt.Errorf("control %s has empty applies_to", ctrl.Name)
		}
	}

	return nil
}

// StalenessWindow returns the CVE staleness threshold as a duration.
func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.Thresholds.CVEStalenessYears) * 365 * 24 * time.Hour
}

// IndustryProfile returns the normalized industry profile for the run.
func (c *Config) IndustryProfile() models.IndustryProfile {
	return models.NormalizeIndustry(c.Industry)
}
