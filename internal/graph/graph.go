package graph

import (
	"sort"

	"github.com/ali01/noetgraph/internal/ids"
)

// BeliefGraph is the flat transport form of a set of belief-graph changes:
// a bag of nodes and edges with no adjacency index. It is what a builder
// pass produces and what gets handed to the compiler for merging into a
// BeliefBase.
type BeliefGraph struct {
	Nodes     map[ids.BID]BeliefNode
	Relations map[EdgeRef]Weight
}

// NewBeliefGraph returns an empty BeliefGraph.
func NewBeliefGraph() *BeliefGraph {
	return &BeliefGraph{
		Nodes:     make(map[ids.BID]BeliefNode),
		Relations: make(map[EdgeRef]Weight),
	}
}

// UpsertNode adds or replaces a node.
func (g *BeliefGraph) UpsertNode(n BeliefNode) {
	g.Nodes[n.Bid] = n
}

// UpsertRelation adds or replaces an edge.
func (g *BeliefGraph) UpsertRelation(ref EdgeRef, w Weight) {
	g.Relations[ref] = w
}

// Merge folds other into g in place, following the node-version-wins and
// edge doc_paths-union rules. Returns g for chaining.
func (g *BeliefGraph) Merge(other *BeliefGraph) *BeliefGraph {
	for bid, n := range other.Nodes {
		existing, ok := g.Nodes[bid]
		if !ok || n.Version >= existing.Version {
			g.Nodes[bid] = n
		}
	}
	for ref, w := range other.Relations {
		existing, ok := g.Relations[ref]
		if !ok {
			g.Relations[ref] = w
			continue
		}
		g.Relations[ref] = MergeWeight(existing, w)
	}
	return g
}

// FindOrphanedEdges returns, sorted for determinism, the BIDs that some
// relation references (as source or sink) but that have no corresponding
// node in g. A non-empty result means g is not balanced.
func (g *BeliefGraph) FindOrphanedEdges() []ids.BID {
	missing := make(map[ids.BID]struct{})
	for ref := range g.Relations {
		if _, ok := g.Nodes[ref.Source]; !ok {
			missing[ref.Source] = struct{}{}
		}
		if _, ok := g.Nodes[ref.Sink]; !ok {
			missing[ref.Sink] = struct{}{}
		}
	}
	return sortedBIDs(missing)
}

// IsBalanced reports whether every relation's endpoints resolve to a node
// present in g (spec.md §8's "balanced" invariant).
func (g *BeliefGraph) IsBalanced() bool {
	return len(g.FindOrphanedEdges()) == 0
}

func sortedBIDs(set map[ids.BID]struct{}) []ids.BID {
	out := make([]ids.BID, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	// BIDs are time-ordered UUIDv7s, so lexicographic string comparison is
	// also chronological; this keeps diagnostics stable across runs.
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
