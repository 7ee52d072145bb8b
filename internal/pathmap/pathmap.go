// Package pathmap maintains the per-network (path -> BID) index the graph
// builder and the query surface use to resolve a document or section path
// to its node. It mirrors the corpus's LinkResolver but keyed per network,
// multi-path aware, and incrementally updatable from the event stream
// instead of being rebuilt on every parse.
package pathmap

import (
	"sort"
	"strings"

	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// PathMap is the (network, path) -> BID index for one network.
type PathMap struct {
	network    ids.BID
	pathToBid  map[string]ids.BID
	bidToPaths map[ids.BID]map[string]struct{}
}

// New returns an empty PathMap scoped to network.
func New(network ids.BID) *PathMap {
	return &PathMap{
		network:    network,
		pathToBid:  make(map[string]ids.BID),
		bidToPaths: make(map[ids.BID]map[string]struct{}),
	}
}

// Network returns the network this PathMap is scoped to.
func (m *PathMap) Network() ids.BID { return m.network }

// Add records path -> bid. A node may hold several paths simultaneously
// (spec.md §3.5's multi-path invariant, e.g. a section reachable via more
// than one parent document).
func (m *PathMap) Add(path string, bid ids.BID) {
	if existing, ok := m.pathToBid[path]; ok && existing != bid {
		m.removePathFromBid(path, existing)
	}
	m.pathToBid[path] = bid
	if m.bidToPaths[bid] == nil {
		m.bidToPaths[bid] = make(map[string]struct{})
	}
	m.bidToPaths[bid][path] = struct{}{}
}

// Remove drops a path entry entirely.
func (m *PathMap) Remove(path string) {
	bid, ok := m.pathToBid[path]
	if !ok {
		return
	}
	delete(m.pathToBid, path)
	m.removePathFromBid(path, bid)
}

// Rename moves a path entry from oldPath to newPath, preserving its bid.
func (m *PathMap) Rename(oldPath, newPath string) {
	bid, ok := m.pathToBid[oldPath]
	if !ok {
		return
	}
	m.Remove(oldPath)
	m.Add(newPath, bid)
}

func (m *PathMap) removePathFromBid(path string, bid ids.BID) {
	set, ok := m.bidToPaths[bid]
	if !ok {
		return
	}
	delete(set, path)
	if len(set) == 0 {
		delete(m.bidToPaths, bid)
	}
}

// Lookup resolves a path to its bid.
func (m *PathMap) Lookup(path string) (ids.BID, bool) {
	bid, ok := m.pathToBid[path]
	return bid, ok
}

// PathsFor returns every path currently mapped to bid, sorted for
// determinism.
func (m *PathMap) PathsFor(bid ids.BID) []string {
	set := m.bidToPaths[bid]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len reports how many distinct paths are indexed.
func (m *PathMap) Len() int { return len(m.pathToBid) }

// All returns a snapshot of every path -> bid entry, for merging one
// PathMap's entries into another (the compiler builds one PathMap per
// document root, then combines them into the network's single PathMap).
func (m *PathMap) All() map[string]ids.BID {
	out := make(map[string]ids.BID, len(m.pathToBid))
	for p, bid := range m.pathToBid {
		out[p] = bid
	}
	return out
}

// Apply folds a path-table event into m. Events for a different network are
// ignored: a compiler keeps one PathMap per network and routes accordingly.
func (m *PathMap) Apply(ev event.Event) {
	switch ev.Kind {
	case event.KindPathAdded:
		p := ev.PathAdded
		if p.Network != m.network {
			return
		}
		m.Add(p.Path, p.Bid)
	case event.KindPathUpdate:
		p := ev.PathUpdate
		if p.Network != m.network {
			return
		}
		m.Rename(p.OldPath, p.NewPath)
	case event.KindPathsRemoved:
		p := ev.PathsRemoved
		if p.Network != m.network {
			return
		}
		for _, path := range p.Paths {
			m.Remove(path)
		}
	}
}

// BuildFromBase walks the section/document hierarchy reachable from root
// via WeightSection edges, assigning each descendant a path formed by
// joining slugged titles with "/". Traversal is depth-first, with siblings
// visited in (Title, Bid) order so the resulting path set is deterministic
// across runs given the same graph.
func BuildFromBase(base *graph.BeliefBase, network, root ids.BID) *PathMap {
	m := New(network)
	if _, ok := base.Node(root); !ok {
		return m
	}
	m.Add("/", root)
	walk(base, m, root, "")
	return m
}

func walk(base *graph.BeliefBase, m *PathMap, parent ids.BID, parentPath string) {
	children := childSectionEdges(base, parent)
	for _, ref := range children {
		child, ok := base.Node(ref.Sink)
		if !ok {
			continue
		}
		slug := slugify(child.Title)
		if slug == "" {
			slug = child.Bid.String()
		}
		path := parentPath + "/" + slug
		m.Add(path, child.Bid)
		walk(base, m, child.Bid, path)
	}
}

func childSectionEdges(base *graph.BeliefBase, parent ids.BID) []graph.EdgeRef {
	all := base.OutEdges(parent)
	out := make([]graph.EdgeRef, 0, len(all))
	for _, ref := range all {
		if ref.Kind == graph.WeightSection {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, _ := base.Node(out[i].Sink)
		nj, _ := base.Node(out[j].Sink)
		if ni.Title != nj.Title {
			return ni.Title < nj.Title
		}
		return out[i].Sink.String() < out[j].Sink.String()
	})
	return out
}

// slugify lowercases and replaces whitespace runs with a single hyphen,
// matching the path fragments a Markdown codec would derive from a heading.
func slugify(title string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
