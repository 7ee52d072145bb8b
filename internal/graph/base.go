package graph

import (
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/ids"
)

// BeliefBase is the indexed, queryable form of a BeliefGraph: it adds
// adjacency indices so callers can walk a node's edges without a full scan.
// The compiler and the persistent cache both operate on a BeliefBase; the
// flat BeliefGraph is only the wire/transport shape between passes.
type BeliefBase struct {
	graph *BeliefGraph
	out   map[ids.BID][]EdgeRef
	in    map[ids.BID][]EdgeRef
}

// NewBeliefBase returns an empty, indexed BeliefBase.
func NewBeliefBase() *BeliefBase {
	return &BeliefBase{
		graph: NewBeliefGraph(),
		out:   make(map[ids.BID][]EdgeRef),
		in:    make(map[ids.BID][]EdgeRef),
	}
}

// Graph returns the underlying flat graph. Callers must not mutate it
// directly; use Apply or Merge so the adjacency index stays in sync.
func (b *BeliefBase) Graph() *BeliefGraph { return b.graph }

// Node looks up a node by BID.
func (b *BeliefBase) Node(bid ids.BID) (BeliefNode, bool) {
	n, ok := b.graph.Nodes[bid]
	return n, ok
}

// OutEdges returns the edges leaving bid.
func (b *BeliefBase) OutEdges(bid ids.BID) []EdgeRef { return b.out[bid] }

// InEdges returns the edges arriving at bid.
func (b *BeliefBase) InEdges(bid ids.BID) []EdgeRef { return b.in[bid] }

// IsBalanced reports whether every edge's endpoints resolve to a known
// node.
func (b *BeliefBase) IsBalanced() bool { return b.graph.IsBalanced() }

// FindOrphanedEdges delegates to the underlying graph.
func (b *BeliefBase) FindOrphanedEdges() []ids.BID { return b.graph.FindOrphanedEdges() }

// Merge folds a flat BeliefGraph (typically a builder pass's session
// output) into b, rebuilding the touched adjacency entries.
func (b *BeliefBase) Merge(other *BeliefGraph) {
	b.graph.Merge(other)
	b.reindex()
}

// reindex rebuilds the adjacency maps from scratch. Called after a bulk
// merge; Apply maintains the index incrementally instead.
func (b *BeliefBase) reindex() {
	b.out = make(map[ids.BID][]EdgeRef)
	b.in = make(map[ids.BID][]EdgeRef)
	for ref := range b.graph.Relations {
		b.out[ref.Source] = append(b.out[ref.Source], ref)
		b.in[ref.Sink] = append(b.in[ref.Sink], ref)
	}
}

func (b *BeliefBase) indexRelation(ref EdgeRef) {
	for _, existing := range b.out[ref.Source] {
		if existing == ref {
			return
		}
	}
	b.out[ref.Source] = append(b.out[ref.Source], ref)
	b.in[ref.Sink] = append(b.in[ref.Sink], ref)
}

func (b *BeliefBase) unindexRelation(ref EdgeRef) {
	b.out[ref.Source] = removeRef(b.out[ref.Source], ref)
	b.in[ref.Sink] = removeRef(b.in[ref.Sink], ref)
}

func removeRef(refs []EdgeRef, target EdgeRef) []EdgeRef {
	out := refs[:0]
	for _, r := range refs {
		if r != target {
			out = append(out, r)
		}
	}
	return out
}

// bodyToNode converts an event's serializable NodeBody into a BeliefNode.
func bodyToNode(bid ids.BID, body event.NodeBody) BeliefNode {
	return BeliefNode{
		Bid:        bid,
		Kinds:      KindSet(body.Kinds),
		Schema:     body.Schema,
		SemanticID: body.SemanticID,
		Title:      body.Title,
		Payload:    body.Payload,
		Version:    body.Version,
	}
}

func bodyToWeight(body event.WeightBody) Weight {
	return Weight{
		Kind:     WeightKind(body.Kind),
		DocPaths: append([]string{}, body.DocPaths...),
		Attrs:    body.Attrs,
		Version:  body.Version,
	}
}

// Apply mutates b according to ev and returns any derived events that
// resulted from the transition — e.g. a NodeRenamed cascades into
// RelationsRemoved/RelationUpdate pairs so that edges follow the rename.
// Speculative-origin events never mutate b: their sole purpose is to let a
// caller observe what WOULD happen (spec.md §4.4.1's identity speculation),
// so Apply computes and returns the derived events without touching state.
func (b *BeliefBase) Apply(ev event.Event) []event.Event {
	if ev.Origin == event.Speculative {
		return b.speculate(ev)
	}

	switch ev.Kind {
	case event.KindNodeUpdate:
		p := ev.NodeUpdate
		b.graph.UpsertNode(bodyToNode(p.Bid, p.Node))
		return nil

	case event.KindNodesRemoved:
		for _, bid := range ev.NodesRemoved.Bids {
			delete(b.graph.Nodes, bid)
		}
		b.reindex()
		return nil

	case event.KindNodeRenamed:
		return b.applyRename(ev.NodeRenamed.OldBid, ev.NodeRenamed.NewBid)

	case event.KindRelationUpdate:
		p := ev.RelationUpdate
		w := bodyToWeight(p.Weight)
		ref := EdgeRef{Source: p.Source, Sink: p.Sink, Kind: w.Kind}
		if existing, ok := b.graph.Relations[ref]; ok {
			w = MergeWeight(existing, w)
		}
		b.graph.Relations[ref] = w
		b.indexRelation(ref)
		return nil

	case event.KindRelationsRemoved:
		for _, er := range ev.RelationsRemoved.Edges {
			ref := EdgeRef{Source: er.Source, Sink: er.Sink, Kind: WeightKind(er.WeightKind)}
			delete(b.graph.Relations, ref)
			b.unindexRelation(ref)
		}
		return nil

	case event.KindPathAdded, event.KindPathUpdate, event.KindPathsRemoved:
		// Path-table maintenance is the PathMap's concern, not the belief
		// graph's; the compiler routes these to the PathMap directly.
		return nil

	default:
		return nil
	}
}

// applyRename migrates every edge and the node itself from oldBid to
// newBid, returning the RelationsRemoved/RelationUpdate pairs that record
// the migration for any subscriber following the durable event stream.
func (b *BeliefBase) applyRename(oldBid, newBid ids.BID) []event.Event {
	var derived []event.Event

	if n, ok := b.graph.Nodes[oldBid]; ok {
		n.Bid = newBid
		delete(b.graph.Nodes, oldBid)
		b.graph.Nodes[newBid] = n
	}

	migrate := func(refs []EdgeRef) {
		for _, ref := range refs {
			w, ok := b.graph.Relations[ref]
			if !ok {
				continue
			}
			delete(b.graph.Relations, ref)
			b.unindexRelation(ref)
			derived = append(derived, event.NewRelationsRemoved(event.Durable, event.EdgeRef{
				Source: ref.Source, Sink: ref.Sink, WeightKind: string(ref.Kind),
			}))

			newRef := ref
			if ref.Source == oldBid {
				newRef.Source = newBid
			}
			if ref.Sink == oldBid {
				newRef.Sink = newBid
			}
			b.graph.Relations[newRef] = w
			b.indexRelation(newRef)
			derived = append(derived, event.NewRelationUpdate(event.Durable, newRef.Source, newRef.Sink, event.WeightBody{
				Kind: string(w.Kind), DocPaths: w.DocPaths, Attrs: w.Attrs, Version: w.Version,
			}))
		}
	}
	migrate(append([]EdgeRef{}, b.out[oldBid]...))
	migrate(append([]EdgeRef{}, b.in[oldBid]...))

	return derived
}

// speculate computes, without mutating b, what a RelationUpdate would
// produce — used by the graph builder to predict the path a not-yet-created
// node would receive before committing to minting a new BID for it.
func (b *BeliefBase) speculate(ev event.Event) []event.Event {
	if ev.Kind != event.KindRelationUpdate {
		return nil
	}
	return []event.Event{ev}
}
