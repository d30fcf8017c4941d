package freshness

import "sort"

// DefaultMaxDepth caps upstream traversal so that cyclic catalog data
// still terminates.
const DefaultMaxDepth = 10

// PredecessorLookup returns the direct dependencies of an object.
type PredecessorLookup interface {
	Predecessors(id string) []string
}

// ChainStep is one (dependency, dependent) pair discovered by Walk.
type ChainStep struct {
	DependencyID string
	DependentID  string
	Depth        int
}

type stepKey struct {
	prev, next string
}

// Walk expands upstream from probeID breadth-first. Each level emits
// (predecessor, node, depth+1) for the nodes discovered by the previous
// level, up to maxDepth levels. A pair is emitted at most once, at the
// shallowest depth it is reached, and self-pairs are skipped. The result is
// ordered by depth, then dependency id, then dependent id.
//
// maxDepth <= 0 selects DefaultMaxDepth.
func Walk(probeID string, g PredecessorLookup, maxDepth int) []ChainStep {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	seen := make(map[stepKey]struct{})
	steps := []ChainStep{}
	active := []string{probeID}

	for depth := 0; depth < maxDepth && len(active) > 0; depth++ {
		var next []string
		queued := make(map[string]struct{})

		for _, n := range active {
			for _, p := range g.Predecessors(n) {
				if p == n {
					continue
				}
				key := stepKey{prev: p, next: n}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				steps = append(steps, ChainStep{DependencyID: p, DependentID: n, Depth: depth + 1})

				if _, ok := queued[p]; !ok {
					queued[p] = struct{}{}
					next = append(next, p)
				}
			}
		}
		active = next
	}

	sort.Slice(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.DependencyID != b.DependencyID {
			return a.DependencyID < b.DependencyID
		}
		return a.DependentID < b.DependentID
	})
	return steps
}
