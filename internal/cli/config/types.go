// Package config provides configuration management for the mzfresh CLI.
//
// Values are layered with koanf: built-in defaults, then mzfresh.yaml, then
// MZFRESH_* environment variables, then explicitly set command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/mzfresh/internal/adapter"
	"github.com/leapstack-labs/mzfresh/internal/freshness"
)

// Config holds all CLI configuration options.
type Config struct {
	Provider      ProviderConfig  `koanf:"provider"`
	Freshness     FreshnessConfig `koanf:"freshness"`
	StatePath     string          `koanf:"state_path"`
	RecordHistory bool            `koanf:"record_history"`
	OutputFormat  string          `koanf:"output"`
	Verbose       bool            `koanf:"verbose"`
	Metrics       MetricsConfig   `koanf:"metrics"`
	Tracing       TracingConfig   `koanf:"tracing"`
}

// ProviderConfig selects and configures the catalog provider.
type ProviderConfig struct {
	Type            string        `koanf:"type"`
	DSN             string        `koanf:"dsn"`
	SnapshotFile    string        `koanf:"snapshot_file"`
	PoolMinSize     int           `koanf:"pool_min_size"`
	PoolMaxSize     int           `koanf:"pool_max_size"`
	ApplicationName string        `koanf:"application_name"`
	QueryTimeout    time.Duration `koanf:"query_timeout"`
}

// FreshnessConfig holds report defaults.
type FreshnessConfig struct {
	ThresholdSeconds     float64 `koanf:"threshold_seconds"`
	MaxDepth             int     `koanf:"max_depth"`
	StalenessThresholdMs float64 `koanf:"staleness_threshold_ms"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written after each command when set
	Textfile string `koanf:"textfile"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default configuration values.
const (
	DefaultProviderType = adapter.MaterializeType
	DefaultStateFile    = ".mzfresh/state.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// defaults returns the lowest-precedence configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"provider.type":                    DefaultProviderType,
		"provider.dsn":                     adapter.DefaultDSN,
		"provider.snapshot_file":           "",
		"provider.pool_min_size":           adapter.DefaultPoolMinSize,
		"provider.pool_max_size":           adapter.DefaultPoolMaxSize,
		"provider.application_name":        adapter.DefaultApplicationName,
		"provider.query_timeout":           adapter.DefaultQueryTimeout.String(),
		"freshness.threshold_seconds":      freshness.DefaultThresholdSeconds,
		"freshness.max_depth":              freshness.DefaultMaxDepth,
		"freshness.staleness_threshold_ms": freshness.DefaultStalenessThresholdMs,
		"state_path":                       DefaultStateFile,
		"record_history":                   false,
		"output":                           DefaultOutput,
		"verbose":                          false,
		"metrics.textfile":                 "",
		"tracing.enabled":                  false,
	}
}

// Default returns the configuration used when nothing has been loaded.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:            DefaultProviderType,
			DSN:             adapter.DefaultDSN,
			PoolMinSize:     adapter.DefaultPoolMinSize,
			PoolMaxSize:     adapter.DefaultPoolMaxSize,
			ApplicationName: adapter.DefaultApplicationName,
			QueryTimeout:    adapter.DefaultQueryTimeout,
		},
		Freshness: FreshnessConfig{
			ThresholdSeconds:     freshness.DefaultThresholdSeconds,
			MaxDepth:             freshness.DefaultMaxDepth,
			StalenessThresholdMs: freshness.DefaultStalenessThresholdMs,
		},
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
	}
}

// AdapterConfig converts the provider section into an adapter.Config.
func (p ProviderConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:            p.Type,
		DSN:             p.DSN,
		SnapshotFile:    p.SnapshotFile,
		PoolMinSize:     p.PoolMinSize,
		PoolMaxSize:     p.PoolMaxSize,
		ApplicationName: p.ApplicationName,
		QueryTimeout:    p.QueryTimeout,
	}
}
