// Package boltcache backs cache.BeliefSource with go.etcd.io/bbolt, a
// single-file embedded key-value store — grounded on the View/Update +
// CreateBucketIfNotExists + json.Marshal pattern from the pack's
// rohankatakam-coderisk IdentityResolver bbolt cache.
package boltcache

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/ali01/noetgraph/internal/cache"
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

const (
	bucketGraphs = "graphs" // network string -> json(storedGraph)
	bucketKeys   = "keys"   // keyString -> bid string
	bucketOwner  = "owner"  // bid string -> network string
)

// storedGraph is the on-disk JSON shape for one network's committed graph.
type storedGraph struct {
	Nodes     map[string]storedNode   `json:"nodes"`
	Relations []storedRelation        `json:"relations"`
}

type storedNode struct {
	Kinds      uint32         `json:"kinds"`
	Schema     string         `json:"schema"`
	SemanticID string         `json:"semantic_id"`
	Title      string         `json:"title"`
	Payload    map[string]any `json:"payload,omitempty"`
	Version    int64          `json:"version"`
}

type storedRelation struct {
	Source   string         `json:"source"`
	Sink     string         `json:"sink"`
	Kind     string         `json:"kind"`
	DocPaths []string       `json:"doc_paths,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
	Version  int64          `json:"version"`
}

// Store is a bbolt-backed BeliefSource.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) a bolt database at path and ensures the
// buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltcache: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{bucketGraphs, bucketKeys, bucketOwner} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltcache: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) loadGraph(tx *bolt.Tx, network ids.BID) (*storedGraph, error) {
	bucket := tx.Bucket([]byte(bucketGraphs))
	data := bucket.Get([]byte(network.String()))
	g := &storedGraph{Nodes: make(map[string]storedNode)}
	if data == nil {
		return g, nil
	}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("boltcache: decode graph for %s: %w", network, err)
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]storedNode)
	}
	return g, nil
}

func (s *Store) saveGraph(tx *bolt.Tx, network ids.BID, g *storedGraph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("boltcache: encode graph for %s: %w", network, err)
	}
	return tx.Bucket([]byte(bucketGraphs)).Put([]byte(network.String()), data)
}

// LookupKeys resolves a BID from the keys bucket.
func (s *Store) LookupKeys(keys []ids.NodeKey) (ids.BID, bool) {
	var found ids.BID
	var ok bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketKeys))
		for _, k := range keys {
			if data := bucket.Get([]byte(keyString(k))); data != nil {
				if bid, err := ids.ParseBID(string(data)); err == nil {
					found, ok = bid, true
					return nil
				}
			}
		}
		return nil
	})
	return found, ok
}

func keyString(k ids.NodeKey) string {
	if k.Kind == ids.KeyBid {
		return fmt.Sprintf("bid:%s", k.Bid)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Network, k.Str)
}

func (s *Store) materialize(g *storedGraph) *graph.BeliefBase {
	base := graph.NewBeliefBase()
	for bidStr, n := range g.Nodes {
		bid, err := ids.ParseBID(bidStr)
		if err != nil {
			continue
		}
		base.Apply(event.NewNodeUpdate(event.Durable, bid, event.NodeBody{
			Kinds: n.Kinds, Schema: n.Schema, SemanticID: n.SemanticID,
			Title: n.Title, Payload: n.Payload, Version: n.Version,
		}))
	}
	for _, r := range g.Relations {
		source, err1 := ids.ParseBID(r.Source)
		sink, err2 := ids.ParseBID(r.Sink)
		if err1 != nil || err2 != nil {
			continue
		}
		base.Apply(event.NewRelationUpdate(event.Durable, source, sink, event.WeightBody{
			Kind: r.Kind, DocPaths: r.DocPaths, Attrs: r.Attrs, Version: r.Version,
		}))
	}
	return base
}

// evalRaw loads network's committed graph with no orphan handling at all,
// shared by EvalUnbalanced (which trace-tags orphans) and EvalBalanced
// (which prunes them) so neither sees the other's treatment.
func (s *Store) evalRaw(network ids.BID) (*graph.BeliefBase, error) {
	var g *storedGraph
	err := s.db.View(func(tx *bolt.Tx) error {
		var lerr error
		g, lerr = s.loadGraph(tx, network)
		return lerr
	})
	if err != nil {
		return nil, err
	}
	return s.materialize(g), nil
}

// EvalUnbalanced returns network's full committed graph. Any relation
// endpoint this store has no node for is loaded as a placeholder tagged
// Trace, so the result is never orphaned (spec.md §4.6).
func (s *Store) EvalUnbalanced(network ids.BID) (*graph.BeliefBase, error) {
	full, err := s.evalRaw(network)
	if err != nil {
		return nil, err
	}
	for _, orphan := range full.Graph().FindOrphanedEdges() {
		full.Apply(event.NewNodeUpdate(event.Durable, orphan, traceStubBody()))
	}
	return full, nil
}

// traceStubBody is the placeholder loaded in place of a relation endpoint
// this store has no node for: KindTrace marks that its own relation
// neighborhood was never loaded, only enough of it to keep the graph
// balanced.
func traceStubBody() event.NodeBody {
	return event.NodeBody{Kinds: uint32(graph.KindTrace), Schema: "trace-stub"}
}

// EvalBalanced returns network's graph with orphaned edges pruned.
func (s *Store) EvalBalanced(network ids.BID) (*graph.BeliefBase, error) {
	full, err := s.evalRaw(network)
	if err != nil {
		return nil, err
	}
	balanced := graph.NewBeliefBase()
	flat := full.Graph()
	for _, n := range flat.Nodes {
		balanced.Apply(event.NewNodeUpdate(event.Durable, n.Bid, event.NodeBody{
			Kinds: uint32(n.Kinds), Schema: n.Schema, SemanticID: n.SemanticID,
			Title: n.Title, Payload: n.Payload, Version: n.Version,
		}))
	}
	for ref, w := range flat.Relations {
		if _, ok := flat.Nodes[ref.Source]; !ok {
			continue
		}
		if _, ok := flat.Nodes[ref.Sink]; !ok {
			continue
		}
		balanced.Apply(event.NewRelationUpdate(event.Durable, ref.Source, ref.Sink, event.WeightBody{
			Kind: string(w.Kind), DocPaths: w.DocPaths, Attrs: w.Attrs, Version: w.Version,
		}))
	}
	return balanced, nil
}

// EvalTrace walks Trace-kind edges out of bid, breadth-first.
func (s *Store) EvalTrace(bid ids.BID) ([]graph.EdgeRef, error) {
	var networkStr []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		networkStr = tx.Bucket([]byte(bucketOwner)).Get([]byte(bid.String()))
		return nil
	})
	if err != nil || networkStr == nil {
		return nil, err
	}
	network, err := ids.ParseBID(string(networkStr))
	if err != nil {
		return nil, err
	}
	base, err := s.EvalUnbalanced(network)
	if err != nil {
		return nil, err
	}

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

// Commit applies batch to the database inside one bbolt Update transaction.
func (s *Store) Commit(network ids.BID, batch []event.Event) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		g, err := s.loadGraph(tx, network)
		if err != nil {
			return err
		}
		keysBucket := tx.Bucket([]byte(bucketKeys))
		ownerBucket := tx.Bucket([]byte(bucketOwner))

		for _, ev := range batch {
			switch ev.Kind {
			case event.KindNodeUpdate:
				p := ev.NodeUpdate
				g.Nodes[p.Bid.String()] = storedNode{
					Kinds: p.Node.Kinds, Schema: p.Node.Schema, SemanticID: p.Node.SemanticID,
					Title: p.Node.Title, Payload: p.Node.Payload, Version: p.Node.Version,
				}
				if err := ownerBucket.Put([]byte(p.Bid.String()), []byte(network.String())); err != nil {
					return err
				}
				for _, k := range p.Keys {
					if err := keysBucket.Put([]byte(keyString(k)), []byte(p.Bid.String())); err != nil {
						return err
					}
				}

			case event.KindNodesRemoved:
				for _, bid := range ev.NodesRemoved.Bids {
					delete(g.Nodes, bid.String())
					ownerBucket.Delete([]byte(bid.String()))
				}

			case event.KindRelationUpdate:
				p := ev.RelationUpdate
				g.Relations = upsertRelation(g.Relations, p.Source.String(), p.Sink.String(), p.Weight)

			case event.KindRelationsRemoved:
				for _, ref := range ev.RelationsRemoved.Edges {
					g.Relations = removeRelation(g.Relations, ref.Source.String(), ref.Sink.String(), ref.WeightKind)
				}

			case event.KindNodeRenamed:
				p := ev.NodeRenamed
				if n, ok := g.Nodes[p.OldBid.String()]; ok {
					delete(g.Nodes, p.OldBid.String())
					g.Nodes[p.NewBid.String()] = n
					ownerBucket.Delete([]byte(p.OldBid.String()))
					if err := ownerBucket.Put([]byte(p.NewBid.String()), []byte(network.String())); err != nil {
						return err
					}
				}
				for i, r := range g.Relations {
					if r.Source == p.OldBid.String() {
						g.Relations[i].Source = p.NewBid.String()
					}
					if r.Sink == p.OldBid.String() {
						g.Relations[i].Sink = p.NewBid.String()
					}
				}
			}
		}
		return s.saveGraph(tx, network, g)
	})
}

func upsertRelation(rels []storedRelation, source, sink string, w event.WeightBody) []storedRelation {
	for i, r := range rels {
		if r.Source == source && r.Sink == sink && r.Kind == w.Kind {
			rels[i].DocPaths = mergeDocPaths(r.DocPaths, w.DocPaths)
			rels[i].Version = w.Version
			return rels
		}
	}
	return append(rels, storedRelation{Source: source, Sink: sink, Kind: w.Kind, DocPaths: w.DocPaths, Attrs: w.Attrs, Version: w.Version})
}

func removeRelation(rels []storedRelation, source, sink, kind string) []storedRelation {
	out := rels[:0]
	for _, r := range rels {
		if r.Source == source && r.Sink == sink && r.Kind == kind {
			continue
		}
		out = append(out, r)
	}
	return out
}

func mergeDocPaths(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	var out []string
	for _, p := range existing {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, p := range incoming {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

var _ cache.BeliefSource = (*Store)(nil)
