// Package state keeps a local history of produced freshness reports in SQLite.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a recorded run does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunKind identifies which report a run produced.
type RunKind string

// Run kinds.
const (
	RunKindCatalog RunKind = "catalog"
	RunKindObject  RunKind = "object"
)

// Run is one recorded report.
type Run struct {
	ID            string          `json:"id"`
	Kind          RunKind         `json:"kind"`
	Subject       string          `json:"subject"`
	Provider      string          `json:"provider"`
	LaggingCount  int             `json:"lagging_count"`
	MaxLagSeconds float64         `json:"max_lag_seconds"`
	Error         string          `json:"error,omitempty"`
	Report        json.RawMessage `json:"report"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Store persists report history.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, kind RunKind, limit int) ([]*Run, error)
	Close() error
}
