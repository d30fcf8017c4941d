// Package dag indexes catalog dependency edges for upstream and downstream
// lookups. The graph is usually acyclic, but nothing here assumes it: cycles
// and self-loops coming from malformed catalog data are stored and reported,
// never rejected.
package dag

import (
	"sort"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
)

// Graph is a directed dependency graph keyed by object id.
type Graph struct {
	nodes     map[string]struct{}
	edges     map[string]map[string]struct{} // parent -> children (dependents)
	parents   map[string]map[string]struct{} // child -> parents (dependencies)
	selfLoops map[string]struct{}
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]struct{}),
		edges:     make(map[string]map[string]struct{}),
		parents:   make(map[string]map[string]struct{}),
		selfLoops: make(map[string]struct{}),
	}
}

// FromEdges builds a graph from raw catalog edges in O(E).
func FromEdges(edges []catalog.Edge) *Graph {
	g := NewGraph()
	for _, e := range edges {
		g.AddEdge(e.SourceID, e.TargetID)
	}
	return g
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
// Unknown endpoints are created implicitly and duplicate edges are ignored.
func (g *Graph) AddEdge(parentID, childID string) {
	g.AddNode(parentID)
	g.AddNode(childID)

	if parentID == childID {
		g.selfLoops[parentID] = struct{}{}
		return
	}

	if g.edges[parentID] == nil {
		g.edges[parentID] = make(map[string]struct{})
	}
	g.edges[parentID][childID] = struct{}{}

	if g.parents[childID] == nil {
		g.parents[childID] = make(map[string]struct{})
	}
	g.parents[childID][parentID] = struct{}{}
}

// HasNode reports whether id appears in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Predecessors returns the direct dependencies of id, sorted.
// An id without incoming edges yields an empty slice.
func (g *Graph) Predecessors(id string) []string {
	return sortedKeys(g.parents[id])
}

// Successors returns the direct dependents of id, sorted.
func (g *Graph) Successors(id string) []string {
	return sortedKeys(g.edges[id])
}

// HasSelfLoop reports whether the catalog listed id as depending on itself.
func (g *Graph) HasSelfLoop(id string) bool {
	_, ok := g.selfLoops[id]
	return ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges, self-loops included.
func (g *Graph) EdgeCount() int {
	count := len(g.selfLoops)
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
// Self-loops count as cycles of length one.
func (g *Graph) HasCycle() (bool, []string) {
	if loops := sortedKeys(g.selfLoops); len(loops) > 0 {
		return true, []string{loops[0], loops[0]}
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.Successors(id) {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range sortedKeys(g.nodes) {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Roots returns nodes with no dependencies.
func (g *Graph) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
