// Package builder implements the graph builder: it turns one parsed source
// document into a session-local BeliefGraph, resolving each node's identity
// through the three-tier cache lookup spec.md §4.4 describes (the document
// currently being built, the rest of this compile session, then the
// persistent cache) before minting a fresh BID. It generalizes the
// teacher's GraphBuilder.BuildGraph two-pass node/edge construction from a
// single flat vault pass into per-document, cache-aware identity
// resolution feeding a multi-pass compiler.
package builder

import (
	"sort"

	"github.com/ali01/noetgraph/internal/codec"
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// CacheLookup is the persistent cache's contribution to identity
// resolution: given a node's candidate keys, report the BID the durable
// store already has on file for it, if any.
type CacheLookup interface {
	LookupKeys(keys []ids.NodeKey) (ids.BID, bool)
}

// UnresolvedRef is an outgoing reference the builder could not resolve in
// this pass. The compiler retries these on the next pass, once more nodes
// have been built (spec.md §4.5's multi-pass convergence); a ref that is
// still unresolved when the working set stops changing gets an External
// stub node from the compiler, is logged as a warning, and is listed in the
// compile result — it does not fail the compile.
type UnresolvedRef struct {
	Source      ids.BID
	Target      ids.NodeKey
	Fallbacks   []ids.NodeKey
	DisplayText string
	Kind        graph.WeightKind
	DocPath     string
}

// Result is what building one document produces.
type Result struct {
	Graph       *graph.BeliefGraph
	Events      []event.Event
	Unresolved  []UnresolvedRef
	Diagnostics []codec.Diagnostic
}

// Builder resolves ProtoNode trees into belief-graph nodes and edges.
type Builder struct {
	Registry *codec.Registry
}

// New returns a Builder backed by registry.
func New(registry *codec.Registry) *Builder {
	return &Builder{Registry: registry}
}

// BuildDocument parses source with the named codec and resolves every node
// and reference it contains against the three-tier identity lookup:
// docIndex (this document, reset per call), session (shared across the
// whole compile pass, supplied by the caller so it accumulates), and
// persistent (the durable cache).
func (b *Builder) BuildDocument(
	codecName string,
	ctx codec.Context,
	path string,
	source []byte,
	session *KeyIndex,
	persistent CacheLookup,
) (*Result, error) {
	c, err := b.Registry.Get(codecName)
	if err != nil {
		return nil, err
	}
	ctx.Path = path
	ctx = c.InjectContext(ctx)

	parsed, err := c.Parse(source, ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Graph: graph.NewBeliefGraph(), Diagnostics: parsed.Diagnostics}
	docIndex := NewKeyIndex()

	bid := b.resolveOrMint(parsed.Root, ctx.Network, docIndex, session, persistent, res)
	b.walk(parsed.Root, bid, path, ctx.Network, docIndex, session, persistent, res)

	return res, nil
}

// walk recursively resolves n's children, wiring each to its parent via a
// section edge, and resolves n's own outgoing references.
func (b *Builder) walk(
	n codec.ProtoNode,
	nBid ids.BID,
	path string,
	network ids.BID,
	docIndex, session *KeyIndex,
	persistent CacheLookup,
	res *Result,
) {
	for _, child := range n.Children {
		childBid := b.resolveOrMint(child, network, docIndex, session, persistent, res)

		ref := graph.EdgeRef{Source: nBid, Sink: childBid, Kind: graph.WeightSection}
		weight := graph.Weight{Kind: graph.WeightSection, DocPaths: []string{path}}
		res.Graph.UpsertRelation(ref, weight)
		res.Events = append(res.Events, event.NewRelationUpdate(event.Session, nBid, childBid, event.WeightBody{
			Kind: string(graph.WeightSection), DocPaths: []string{path},
		}))

		b.walk(child, childBid, path, network, docIndex, session, persistent, res)
	}

	for _, outRef := range n.OutRefs {
		target, ok := resolveKeyWithFallbacks(outRef.Target, outRef.Fallbacks, docIndex, session, persistent)
		if !ok {
			res.Unresolved = append(res.Unresolved, UnresolvedRef{
				Source: nBid, Target: outRef.Target, Fallbacks: outRef.Fallbacks,
				DisplayText: outRef.DisplayText, Kind: outRef.Kind, DocPath: path,
			})
			continue
		}
		ref := graph.EdgeRef{Source: nBid, Sink: target, Kind: outRef.Kind}
		weight := graph.Weight{Kind: outRef.Kind, DocPaths: []string{path}}
		res.Graph.UpsertRelation(ref, weight)
		res.Events = append(res.Events, event.NewRelationUpdate(event.Session, nBid, target, event.WeightBody{
			Kind: string(outRef.Kind), DocPaths: []string{path},
		}))
	}
}

// lookupTiers walks docIndex, then session, then persistent, in that order,
// trying every key in keys at each tier before moving to the next.
func lookupTiers(keys []ids.NodeKey, docIndex, session *KeyIndex, persistent CacheLookup) (ids.BID, bool) {
	if bid, ok := docIndex.Lookup(keys); ok {
		return bid, true
	}
	if bid, ok := session.Lookup(keys); ok {
		return bid, true
	}
	if bid, ok := persistent.LookupKeys(keys); ok {
		return bid, true
	}
	return ids.Nil, false
}

// resolveOrMint resolves n's identity via the three-tier lookup, minting a
// fresh BID only when none of docIndex/session/persistent recognize any of
// n's candidate keys, then records the node in the session graph.
//
// spec.md §4.4.1 step 3: a hit on an explicit BID is always authoritative.
// A hit on Path (or another non-BID key) is only accepted as-is when the
// proto-node carries no explicit BID of its own, or carries the same one;
// a Path-hit against a *differing* explicit BID is an identity migration
// (step 5) and must emit NodeRenamed rather than silently merge the two.
func (b *Builder) resolveOrMint(
	n codec.ProtoNode,
	network ids.BID,
	docIndex, session *KeyIndex,
	persistent CacheLookup,
	res *Result,
) ids.BID {
	var bid, renamedFrom ids.BID

	if !n.ExplicitBID.IsNil() {
		if existing, ok := lookupTiers([]ids.NodeKey{ids.BidKey(n.ExplicitBID)}, docIndex, session, persistent); ok {
			bid = existing
		}
	}

	if bid.IsNil() {
		if existing, ok := lookupTiers(n.Keys, docIndex, session, persistent); ok {
			if n.ExplicitBID.IsNil() || n.ExplicitBID == existing {
				bid = existing
			} else {
				renamedFrom = existing
				bid = n.ExplicitBID
			}
		}
	}

	if bid.IsNil() {
		bid = n.ExplicitBID
	}
	if bid.IsNil() {
		bid = ids.New(network)
	}

	if !renamedFrom.IsNil() {
		res.Events = append(res.Events, event.NewNodeRenamed(event.Session, renamedFrom, bid))
		docIndex.Forget(renamedFrom)
		session.Forget(renamedFrom)
		docIndex.Record(bid, ids.BidKey(renamedFrom))
		session.Record(bid, ids.BidKey(renamedFrom))
	}

	docIndex.Record(bid, n.Keys...)
	docIndex.Record(bid, ids.BidKey(bid))
	session.Record(bid, n.Keys...)
	session.Record(bid, ids.BidKey(bid))

	node := graph.BeliefNode{
		Bid:        bid,
		Kinds:      n.Kinds,
		Schema:     n.Schema,
		SemanticID: semanticIDFromKeys(n.Keys),
		Title:      n.Title,
		Payload:    n.Payload,
	}
	res.Graph.UpsertNode(node)
	res.Events = append(res.Events, event.NewNodeUpdate(event.Session, bid, event.NodeBody{
		Kinds: uint32(n.Kinds), Schema: n.Schema, Title: n.Title, Payload: n.Payload,
	}, n.Keys...))

	return bid
}

func semanticIDFromKeys(keys []ids.NodeKey) string {
	for _, k := range keys {
		if k.Kind == ids.KeyID {
			return k.Str
		}
	}
	return ""
}

func resolveKey(key ids.NodeKey, docIndex, session *KeyIndex, persistent CacheLookup) (ids.BID, bool) {
	if key.Kind == 0 && key.Str == "" && key.Bid.IsNil() {
		return ids.Nil, false
	}
	if docIndex != nil {
		if bid, ok := docIndex.Lookup([]ids.NodeKey{key}); ok {
			return bid, true
		}
	}
	if bid, ok := session.Lookup([]ids.NodeKey{key}); ok {
		return bid, true
	}
	if bid, ok := persistent.LookupKeys([]ids.NodeKey{key}); ok {
		return bid, true
	}
	return ids.Nil, false
}

// resolveKeyWithFallbacks tries target first, then each fallback candidate
// in order, across all three identity tiers before moving to the next
// candidate — an exact match anywhere beats a fuzzy match anywhere,
// mirroring the teacher's LinkResolver.ResolveLink tier order (exact path,
// then relative path, then basename/normalized fuzzy match).
func resolveKeyWithFallbacks(target ids.NodeKey, fallbacks []ids.NodeKey, docIndex, session *KeyIndex, persistent CacheLookup) (ids.BID, bool) {
	if bid, ok := resolveKey(target, docIndex, session, persistent); ok {
		return bid, true
	}
	for _, candidate := range fallbacks {
		if bid, ok := resolveKey(candidate, docIndex, session, persistent); ok {
			return bid, true
		}
	}
	return ids.Nil, false
}

// RetryUnresolved re-attempts resolution of every ref in unresolved against
// session and persistent only (no per-document index — the compiler calls
// this between passes, once session has accumulated nodes built by other
// documents). Refs that resolve produce a Session-origin RelationUpdate
// event; refs that still don't are returned for the next pass or, once the
// working set stops shrinking, for minting as External stub nodes.
func RetryUnresolved(unresolved []UnresolvedRef, session *KeyIndex, persistent CacheLookup) (resolved []event.Event, remaining []UnresolvedRef) {
	for _, u := range unresolved {
		bid, ok := resolveKeyWithFallbacks(u.Target, u.Fallbacks, nil, session, persistent)
		if !ok {
			remaining = append(remaining, u)
			continue
		}
		resolved = append(resolved, event.NewRelationUpdate(event.Session, u.Source, bid, event.WeightBody{
			Kind: string(u.Kind), DocPaths: []string{u.DocPath},
		}))
	}
	return resolved, remaining
}

// SortUnresolved returns a deterministically ordered copy of refs, for
// stable diagnostics across runs.
func SortUnresolved(refs []UnresolvedRef) []UnresolvedRef {
	out := append([]UnresolvedRef{}, refs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocPath != out[j].DocPath {
			return out[i].DocPath < out[j].DocPath
		}
		return out[i].Target.Str < out[j].Target.Str
	})
	return out
}
