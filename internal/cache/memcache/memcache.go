// Package memcache is the in-memory reference implementation of
// cache.BeliefSource: the baseline the durable backends (sqlitecache,
// boltcache, pgcache) are checked against for observational equivalence.
package memcache

import (
	"fmt"
	"sync"

	"github.com/ali01/noetgraph/internal/cache"
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// Store is an in-memory BeliefSource, one BeliefBase per network plus a
// global key index for cross-network BID lookup (Bref/Id/Title/Path keys
// always carry their network, so there is no ambiguity keying all of them
// in one map).
type Store struct {
	mu      sync.RWMutex
	bases   map[ids.BID]*graph.BeliefBase
	byKey   map[string]ids.BID
	network map[ids.BID]ids.BID // bid -> owning network, for EvalTrace
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		bases:   make(map[ids.BID]*graph.BeliefBase),
		byKey:   make(map[string]ids.BID),
		network: make(map[ids.BID]ids.BID),
	}
}

func (s *Store) baseFor(network ids.BID) *graph.BeliefBase {
	b, ok := s.bases[network]
	if !ok {
		b = graph.NewBeliefBase()
		s.bases[network] = b
	}
	return b
}

func keyString(k ids.NodeKey) string {
	if k.Kind == ids.KeyBid {
		return fmt.Sprintf("bid:%s", k.Bid)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Network, k.Str)
}

// LookupKeys satisfies both cache.BeliefSource and builder.CacheLookup.
func (s *Store) LookupKeys(keys []ids.NodeKey) (ids.BID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range keys {
		if bid, ok := s.byKey[keyString(k)]; ok {
			return bid, true
		}
	}
	return ids.Nil, false
}

// EvalBalanced returns a copy of network's graph with orphaned edges
// pruned.
func (s *Store) EvalBalanced(network ids.BID) (*graph.BeliefBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	base := s.baseFor(network)

	balanced := graph.NewBeliefBase()
	flat := base.Graph()
	for _, n := range flat.Nodes {
		balanced.Apply(event.NewNodeUpdate(event.Durable, n.Bid, nodeToBody(n)))
	}
	for ref, w := range flat.Relations {
		if _, ok := flat.Nodes[ref.Source]; !ok {
			continue
		}
		if _, ok := flat.Nodes[ref.Sink]; !ok {
			continue
		}
		balanced.Apply(event.NewRelationUpdate(event.Durable, ref.Source, ref.Sink, weightToBody(w)))
	}
	return balanced, nil
}

// EvalUnbalanced returns network's full graph, including every relation
// regardless of whether its endpoints are themselves in the result set.
// spec.md §4.6: a referenced node missing from the result set is loaded and
// tagged Trace rather than left dangling — eval_unbalanced must never
// return a graph with orphaned edges.
func (s *Store) EvalUnbalanced(network ids.BID) (*graph.BeliefBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	base := s.baseFor(network)

	full := graph.NewBeliefBase()
	flat := base.Graph()
	for _, n := range flat.Nodes {
		full.Apply(event.NewNodeUpdate(event.Durable, n.Bid, nodeToBody(n)))
	}
	for ref, w := range flat.Relations {
		full.Apply(event.NewRelationUpdate(event.Durable, ref.Source, ref.Sink, weightToBody(w)))
	}

	for _, orphan := range full.Graph().FindOrphanedEdges() {
		full.Apply(event.NewNodeUpdate(event.Durable, orphan, traceStubBody()))
	}
	return full, nil
}

// traceStubBody is the placeholder node body loaded in place of a relation
// endpoint this store has no data for: the schema satisfies BeliefNode's
// validation requirement, and KindTrace records that the node's own
// relation neighborhood was never loaded, only enough of it to keep the
// returned graph balanced.
func traceStubBody() event.NodeBody {
	return event.NodeBody{Kinds: uint32(graph.KindTrace), Schema: "trace-stub"}
}

// EvalTrace walks Trace-kind edges out of bid, breadth-first, and returns
// every edge encountered.
func (s *Store) EvalTrace(bid ids.BID) ([]graph.EdgeRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	network, ok := s.network[bid]
	if !ok {
		return nil, nil
	}
	base := s.baseFor(network)

	var out []graph.EdgeRef
	seen := make(map[ids.BID]bool)
	queue := []ids.BID{bid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, ref := range base.OutEdges(cur) {
			if ref.Kind != graph.WeightTrace {
				continue
			}
			out = append(out, ref)
			queue = append(queue, ref.Sink)
		}
	}
	return out, nil
}

// Commit applies batch to network's live BeliefBase while holding the
// store's write lock, so no reader observes a partially applied batch.
func (s *Store) Commit(network ids.BID, batch []event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(network, batch)
}

func (s *Store) commitLocked(network ids.BID, batch []event.Event) error {
	base := s.baseFor(network)
	for _, ev := range batch {
		if ev.Kind == event.KindNodeUpdate {
			p := ev.NodeUpdate
			s.network[p.Bid] = network
			for _, k := range p.Keys {
				s.byKey[keyString(k)] = p.Bid
			}
			s.byKey[keyString(ids.BidKey(p.Bid))] = p.Bid
		}
		derived := base.Apply(ev)
		if len(derived) > 0 {
			if err := s.commitLocked(network, derived); err != nil {
				return err
			}
		}
	}
	return nil
}

func nodeToBody(n graph.BeliefNode) event.NodeBody {
	return event.NodeBody{
		Kinds: uint32(n.Kinds), Schema: n.Schema, SemanticID: n.SemanticID,
		Title: n.Title, Payload: n.Payload, Version: n.Version,
	}
}

func weightToBody(w graph.Weight) event.WeightBody {
	return event.WeightBody{Kind: string(w.Kind), DocPaths: w.DocPaths, Attrs: w.Attrs, Version: w.Version}
}

var _ cache.BeliefSource = (*Store)(nil)
