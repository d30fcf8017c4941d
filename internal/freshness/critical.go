package freshness

import (
	"sort"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
)

// CriticalPathEdge is a dependency edge whose source frontier is ahead of its
// target frontier, i.e. an edge where delay is currently accruing.
type CriticalPathEdge struct {
	ProbeID    string  `json:"probe_id"`
	SourceID   string  `json:"source_id"`
	TargetID   string  `json:"target_id"`
	SourceName *string `json:"source_name"`
	TargetName *string `json:"target_name"`
	SourceType *string `json:"source_type"`
	TargetType *string `json:"target_type"`
	LagMs      float64 `json:"lag_ms"`
	LagSeconds float64 `json:"lag_seconds"`
}

// SelectCriticalEdges scores the edges of a probe's chain by frontier
// differential. Edges where either frontier is unknown, or where the source
// does not strictly lead the target, are omitted. The result is sorted by
// lag descending.
func SelectCriticalEdges(probeID string, chain []ChainStep, idx *catalog.Index) []CriticalPathEdge {
	edges := []CriticalPathEdge{}

	for _, step := range chain {
		src, ok := idx.Frontier(step.DependencyID)
		if !ok || !src.Known() {
			continue
		}
		dst, ok := idx.Frontier(step.DependentID)
		if !ok || !dst.Known() {
			continue
		}
		if *src.WriteFrontier <= *dst.WriteFrontier {
			continue
		}

		lagMs := float64(*src.WriteFrontier - *dst.WriteFrontier)
		edge := CriticalPathEdge{
			ProbeID:    probeID,
			SourceID:   step.DependencyID,
			TargetID:   step.DependentID,
			LagMs:      lagMs,
			LagSeconds: lagMs / 1000.0,
		}
		if o, ok := idx.Object(step.DependencyID); ok {
			edge.SourceName, edge.SourceType = strPtr(o.Name), strPtr(o.Type)
		}
		if o, ok := idx.Object(step.DependentID); ok {
			edge.TargetName, edge.TargetType = strPtr(o.Name), strPtr(o.Type)
		}
		edges = append(edges, edge)
	}

	SortCriticalEdges(edges)
	return edges
}

// SortCriticalEdges orders edges by lag descending, breaking ties by probe,
// source and target ids.
func SortCriticalEdges(edges []CriticalPathEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.LagMs != b.LagMs {
			return a.LagMs > b.LagMs
		}
		if a.ProbeID != b.ProbeID {
			return a.ProbeID < b.ProbeID
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.TargetID < b.TargetID
	})
}

func strPtr(s string) *string {
	return &s
}
