package freshness

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
)

// ObjectFreshness describes one resolved object and its current lag.
type ObjectFreshness struct {
	ObjectID          string     `json:"object_id"`
	ObjectName        string     `json:"object_name"`
	SchemaName        string     `json:"schema_name"`
	ObjectType        string     `json:"object_type"`
	ClusterName       *string    `json:"cluster_name"`
	WriteFrontier     *uint64    `json:"write_frontier"`
	WriteFrontierTime *time.Time `json:"write_frontier_time"`
	LagSeconds        float64    `json:"lag_seconds"`
	LagMs             float64    `json:"lag_ms"`
	IsStale           bool       `json:"is_stale"`
}

// LaggingObject is an object whose lag exceeds the report threshold.
type LaggingObject struct {
	ObjectFreshness
	ThresholdSeconds float64 `json:"threshold_seconds"`
}

// ChainEntry is one edge of a catalog-wide dependency chain, tagged with the
// lagging object (probe) it was discovered from.
type ChainEntry struct {
	ProbeID        string  `json:"probe_id"`
	DependencyID   string  `json:"dependency_id"`
	DependentID    string  `json:"dependent_id"`
	Depth          int     `json:"depth"`
	DependencyName *string `json:"dependency_name"`
	DependentName  *string `json:"dependent_name"`
	DependencyType *string `json:"dependency_type"`
	DependentType  *string `json:"dependent_type"`
}

// DiagnosticReport is the catalog-wide freshness report.
type DiagnosticReport struct {
	LaggingObjects   []LaggingObject    `json:"lagging_objects"`
	DependencyChains []ChainEntry       `json:"dependency_chains"`
	CriticalPaths    []CriticalPathEdge `json:"critical_paths"`
}

// ChainNode is one endpoint of a DependencyChainEntry. Metadata fields are
// nil when the catalog no longer knows the referenced id.
type ChainNode struct {
	ObjectID          string     `json:"object_id"`
	Name              *string    `json:"name"`
	Type              *string    `json:"type"`
	Schema            *string    `json:"schema"`
	Cluster           *string    `json:"cluster"`
	WriteFrontier     *uint64    `json:"write_frontier"`
	WriteFrontierTime *time.Time `json:"write_frontier_time"`
	LagSeconds        float64    `json:"lag_seconds"`
	LagMs             float64    `json:"lag_ms"`
	IsStale           bool       `json:"is_stale"`
}

// DependencyChainEntry is one edge of a single object's upstream chain.
type DependencyChainEntry struct {
	Depth      int       `json:"depth"`
	Dependency ChainNode `json:"dependency"`
	Dependent  ChainNode `json:"dependent"`
}

// FreshnessSummary aggregates the chain of a single object.
//
// CriticalPathLagSeconds equals MaxLagSeconds. It is not a weighted longest
// path through the chain.
type FreshnessSummary struct {
	TotalDependencies      int     `json:"total_dependencies"`
	StaleDependencies      int     `json:"stale_dependencies"`
	MaxLagSeconds          float64 `json:"max_lag_seconds"`
	CriticalPathLagSeconds float64 `json:"critical_path_lag_seconds"`
}

// ObjectDiagnosticReport is the single-object freshness report. When the
// object cannot be resolved only Error is set, and only Error is serialized.
type ObjectDiagnosticReport struct {
	TargetObject     *ObjectFreshness       `json:"target_object"`
	DependencyChain  []DependencyChainEntry `json:"dependency_chain"`
	FreshnessSummary FreshnessSummary       `json:"freshness_summary"`
	Error            string                 `json:"error,omitempty"`
}

// NotFound reports whether the requested object was absent.
func (r *ObjectDiagnosticReport) NotFound() bool {
	return r.Error != ""
}

// MarshalJSON emits {"error": ...} alone for not-found reports.
func (r ObjectDiagnosticReport) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.Error})
	}
	type plain ObjectDiagnosticReport
	return json.Marshal(plain(r))
}

func notFoundReport(name, schema string) *ObjectDiagnosticReport {
	return &ObjectDiagnosticReport{
		Error: fmt.Sprintf("Object '%s' not found in schema '%s'", name, schema),
	}
}

func newObjectFreshness(o catalog.Object, f catalog.Frontier, m LagMeasurement) ObjectFreshness {
	return ObjectFreshness{
		ObjectID:          o.ID,
		ObjectName:        o.Name,
		SchemaName:        o.Schema,
		ObjectType:        o.Type,
		ClusterName:       optStr(o.Cluster),
		WriteFrontier:     f.WriteFrontier,
		WriteFrontierTime: frontierTime(f),
		LagSeconds:        m.Seconds,
		LagMs:             m.Millis,
		IsStale:           m.Stale,
	}
}

func newChainNode(id string, idx *catalog.Index, now time.Time, thresholdMs float64) ChainNode {
	node := ChainNode{ObjectID: id}
	if o, ok := idx.Object(id); ok {
		node.Name = strPtr(o.Name)
		node.Type = strPtr(o.Type)
		node.Schema = strPtr(o.Schema)
		node.Cluster = optStr(o.Cluster)
	}
	f, _ := idx.Frontier(id)
	m := Measure(f, now, thresholdMs)
	node.WriteFrontier = f.WriteFrontier
	node.WriteFrontierTime = frontierTime(f)
	node.LagSeconds = m.Seconds
	node.LagMs = m.Millis
	node.IsStale = m.Stale
	return node
}

func frontierTime(f catalog.Frontier) *time.Time {
	if f.WriteFrontier == nil {
		return nil
	}
	t := time.UnixMilli(int64(*f.WriteFrontier)).UTC()
	return &t
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
