package config

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/mzfresh/internal/adapter"
	"github.com/leapstack-labs/mzfresh/internal/cli/output"
)

// maxDepthLimit bounds freshness.max_depth.
const maxDepthLimit = 100

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider.Type == "" {
		return fmt.Errorf("provider.type is required\nHint: Set provider.type to one of %v", adapter.ListAdapters())
	}
	if !adapter.IsRegistered(c.Provider.Type) {
		return &adapter.UnknownProviderError{Type: c.Provider.Type, Available: adapter.ListAdapters()}
	}
	if c.Provider.Type == adapter.FileType && c.Provider.SnapshotFile == "" {
		return fmt.Errorf("provider.snapshot_file is required for the file provider\nHint: Use --snapshot-file or set provider.snapshot_file in mzfresh.yaml")
	}
	if c.Provider.PoolMinSize < 0 || c.Provider.PoolMaxSize < 0 {
		return fmt.Errorf("provider pool sizes must not be negative")
	}
	if c.Provider.QueryTimeout < 0 {
		return fmt.Errorf("provider.query_timeout must not be negative")
	}

	if c.Freshness.ThresholdSeconds < 0 {
		return fmt.Errorf("freshness.threshold_seconds must be >= 0, got %v", c.Freshness.ThresholdSeconds)
	}
	if c.Freshness.MaxDepth < 0 || c.Freshness.MaxDepth > maxDepthLimit {
		return fmt.Errorf("freshness.max_depth must be between 0 and %d, got %d", maxDepthLimit, c.Freshness.MaxDepth)
	}
	if c.Freshness.StalenessThresholdMs < 0 {
		return fmt.Errorf("freshness.staleness_threshold_ms must be >= 0, got %v", c.Freshness.StalenessThresholdMs)
	}

	if !output.IsValidMode(c.OutputFormat) {
		return fmt.Errorf("unknown output format %q\nHint: Use one of %v", c.OutputFormat, output.Modes)
	}
	return nil
}

// ValidateSnapshotFile checks that the file provider's snapshot exists.
func (c *Config) ValidateSnapshotFile() error {
	if c.Provider.Type != adapter.FileType {
		return nil
	}
	if _, err := os.Stat(c.Provider.SnapshotFile); os.IsNotExist(err) {
		return fmt.Errorf("snapshot file does not exist: %s\nHint: Create one with 'mzfresh snapshot export' or use --snapshot-file to specify a different path", c.Provider.SnapshotFile)
	}
	return nil
}
