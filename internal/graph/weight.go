package graph

import (
	"log/slog"
	"sort"

	"github.com/ali01/noetgraph/internal/ids"
)

// WeightKind distinguishes parallel edges between the same pair of nodes.
// The set is open: codecs and the builder mint their own kinds as needed.
type WeightKind string

const (
	// WeightSection is the implicit parent/child edge a codec derives from
	// document structure (heading nesting, list nesting).
	WeightSection WeightKind = "section"
	// WeightReference is an explicit in-document link (WikiLink, Markdown
	// link) between two belief nodes.
	WeightReference WeightKind = "reference"
	// WeightTrace connects a Trace node to the belief(s) it supports.
	WeightTrace WeightKind = "trace"
	// WeightAsset connects a document (or section) to an embedded asset —
	// an image, PDF, or other non-document file referenced by a WikiLink
	// embed (spec.md §4.3's "Assets"). It is tried as an ordinary
	// cross-document reference first (an embed can just as well name
	// another parsed document); only once nothing in the working set
	// resolves it does the compiler fall back to content-addressing a
	// file on disk.
	WeightAsset WeightKind = "asset"
)

// Weight is the data carried by one edge. DocPaths records every source
// document path that asserts this edge; merges union the path sets
// (spec.md §4.1's multi-path invariant). An edge is removed only by a
// RelationsRemoved event; an edge whose DocPaths is empty is kept.
type Weight struct {
	Kind     WeightKind
	DocPaths []string
	Attrs    map[string]any
	Version  int64
}

// EdgeRef names one parallel edge of the multigraph.
type EdgeRef struct {
	Source ids.BID
	Sink   ids.BID
	Kind   WeightKind
}

// sortDedupPaths returns a sorted copy of paths with duplicates removed.
func sortDedupPaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MergeWeight combines an existing edge weight with an incoming one,
// unioning their doc_paths rather than replacing them outright: a node can
// be referenced from several documents at once, and a pass over one
// document must not clobber an edge another document still asserts.
// Removal of a stale path is handled explicitly via RelationsRemoved once
// the builder detects a document no longer asserts it, not by this merge.
func MergeWeight(oldW, newW Weight) Weight {
	merged := newW
	merged.DocPaths = sortDedupPaths(append(append([]string{}, oldW.DocPaths...), newW.DocPaths...))
	if newW.Version < oldW.Version {
		merged.Version = oldW.Version
	}
	if len(merged.DocPaths) == 1 {
		// Most edges end up supported by the full set of documents that
		// assert them; multi-path is the common case, not a merge
		// artifact, so an edge that settles on a single path is worth a
		// second look rather than passing silently.
		slog.Default().Warn("relation merged down to a single doc path",
			"kind", string(merged.Kind), "path", merged.DocPaths[0])
	}
	return merged
}
