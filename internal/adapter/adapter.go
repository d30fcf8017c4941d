// Package adapter provides catalog providers for the freshness engine: a
// Materialize adapter reading the live catalog over the Postgres wire
// protocol and a file adapter reading YAML snapshots.
package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
)

// Defaults for the Materialize adapter.
const (
	DefaultDSN             = "postgresql://materialize@localhost:6875/materialize"
	DefaultApplicationName = "mzfresh"
	DefaultPoolMinSize     = 1
	DefaultPoolMaxSize     = 10
	DefaultQueryTimeout    = 30 * time.Second
)

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("adapter not connected")

// Config holds the configuration for connecting to a catalog.
type Config struct {
	// Type selects the adapter ("materialize", "file")
	Type string

	// DSN is the connection string for network catalogs
	DSN string

	// SnapshotFile is the YAML snapshot read by the file adapter
	SnapshotFile string

	// PoolMinSize is the number of idle connections kept open
	PoolMinSize int

	// PoolMaxSize bounds concurrent connections
	PoolMaxSize int

	// ApplicationName is reported to the server for the session
	ApplicationName string

	// QueryTimeout bounds each catalog read (0 disables)
	QueryTimeout time.Duration
}

// Adapter is a connectable catalog provider that also supplies the clock
// frontiers are compared against.
type Adapter interface {
	catalog.Provider
	catalog.Clock

	// Connect prepares the adapter using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close releases resources held by the adapter.
	Close() error

	// Name returns the registered adapter type.
	Name() string
}
