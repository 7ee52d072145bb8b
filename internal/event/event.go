// Package event defines the monotonic record of belief-graph state
// transitions that flows from the graph builder through the compiler to the
// persistent cache and any external subscriber. It is deliberately
// decoupled from the richer graph.BeliefNode/graph.Weight types: the graph
// package depends on event (to implement Apply), not the other way around.
package event

import "github.com/ali01/noetgraph/internal/ids"

// Origin tags why an event exists and what should happen to it.
type Origin int

const (
	// Durable events should be committed to the persistent cache.
	Durable Origin = iota
	// Session events are memory-only for the current compilation session.
	Session
	// Speculative events derive paths/consequences without mutating any
	// index — used by identity speculation (spec.md §4.4.1) to compute the
	// path a not-yet-created node would receive.
	Speculative
)

func (o Origin) String() string {
	switch o {
	case Durable:
		return "durable"
	case Session:
		return "session"
	case Speculative:
		return "speculative"
	default:
		return "unknown"
	}
}

// Kind discriminates the Event variants.
type Kind int

const (
	KindNodeUpdate Kind = iota
	KindNodesRemoved
	KindNodeRenamed
	KindRelationUpdate
	KindRelationsRemoved
	KindPathAdded
	KindPathUpdate
	KindPathsRemoved
)

func (k Kind) String() string {
	switch k {
	case KindNodeUpdate:
		return "NodeUpdate"
	case KindNodesRemoved:
		return "NodesRemoved"
	case KindNodeRenamed:
		return "NodeRenamed"
	case KindRelationUpdate:
		return "RelationUpdate"
	case KindRelationsRemoved:
		return "RelationsRemoved"
	case KindPathAdded:
		return "PathAdded"
	case KindPathUpdate:
		return "PathUpdate"
	case KindPathsRemoved:
		return "PathsRemoved"
	default:
		return "Unknown"
	}
}

// NodeBody is the serializable body of a node, as carried by a NodeUpdate
// event. graph.BeliefNode is built from this plus a BID.
type NodeBody struct {
	Kinds      uint32
	Schema     string
	SemanticID string
	Title      string
	Payload    map[string]any
	Version    int64
}

// WeightBody is the serializable body of an edge weight, as carried by a
// RelationUpdate event.
type WeightBody struct {
	Kind     string
	DocPaths []string
	Attrs    map[string]any
	Version  int64
}

// EdgeRef names one edge of the multigraph: a (source, sink) pair can carry
// several parallel edges distinguished by WeightKind.
type EdgeRef struct {
	Source     ids.BID
	Sink       ids.BID
	WeightKind string
}

// Event is a tagged union over every state transition the belief graph
// recognizes. Exactly one payload field is populated, selected by Kind.
type Event struct {
	Kind   Kind
	Origin Origin

	NodeUpdate       *NodeUpdatePayload
	NodesRemoved     *NodesRemovedPayload
	NodeRenamed      *NodeRenamedPayload
	RelationUpdate   *RelationUpdatePayload
	RelationsRemoved *RelationsRemovedPayload
	PathAdded        *PathAddedPayload
	PathUpdate       *PathUpdatePayload
	PathsRemoved     *PathsRemovedPayload
}

// NodeUpdatePayload upserts a node, matchable by any of the given keys — the
// persistent cache is expected to match a hit on any one of them.
type NodeUpdatePayload struct {
	Keys []ids.NodeKey
	Bid  ids.BID
	Node NodeBody
}

// NodesRemovedPayload hard-deletes the named nodes.
type NodesRemovedPayload struct {
	Bids []ids.BID
}

// NodeRenamedPayload migrates a node's identity: all edges and path entries
// referencing OldBid must be updated to NewBid.
type NodeRenamedPayload struct {
	OldBid ids.BID
	NewBid ids.BID
}

// RelationUpdatePayload upserts an edge with exactly the given weight. Path
// sets are merged per the multi-path rule (spec.md §4.1), not replaced.
type RelationUpdatePayload struct {
	Source ids.BID
	Sink   ids.BID
	Weight WeightBody
}

// RelationsRemovedPayload hard-deletes the named edges.
type RelationsRemovedPayload struct {
	Edges []EdgeRef
}

// PathAddedPayload records a new (network, path) -> bid entry.
type PathAddedPayload struct {
	Network ids.BID
	Path    string
	Bid     ids.BID
}

// PathUpdatePayload renames an existing path entry.
type PathUpdatePayload struct {
	Network ids.BID
	OldPath string
	NewPath string
	Bid     ids.BID
}

// PathsRemovedPayload removes path entries.
type PathsRemovedPayload struct {
	Network ids.BID
	Paths   []string
}

// NewNodeUpdate constructs a NodeUpdate event.
func NewNodeUpdate(origin Origin, bid ids.BID, node NodeBody, keys ...ids.NodeKey) Event {
	return Event{
		Kind:   KindNodeUpdate,
		Origin: origin,
		NodeUpdate: &NodeUpdatePayload{Keys: keys, Bid: bid, Node: node},
	}
}

// NewNodesRemoved constructs a NodesRemoved event.
func NewNodesRemoved(origin Origin, bids ...ids.BID) Event {
	return Event{Kind: KindNodesRemoved, Origin: origin, NodesRemoved: &NodesRemovedPayload{Bids: bids}}
}

// NewNodeRenamed constructs a NodeRenamed event.
func NewNodeRenamed(origin Origin, oldBid, newBid ids.BID) Event {
	return Event{Kind: KindNodeRenamed, Origin: origin, NodeRenamed: &NodeRenamedPayload{OldBid: oldBid, NewBid: newBid}}
}

// NewRelationUpdate constructs a RelationUpdate event.
func NewRelationUpdate(origin Origin, source, sink ids.BID, weight WeightBody) Event {
	return Event{
		Kind:           KindRelationUpdate,
		Origin:         origin,
		RelationUpdate: &RelationUpdatePayload{Source: source, Sink: sink, Weight: weight},
	}
}

// NewRelationsRemoved constructs a RelationsRemoved event.
func NewRelationsRemoved(origin Origin, edges ...EdgeRef) Event {
	return Event{Kind: KindRelationsRemoved, Origin: origin, RelationsRemoved: &RelationsRemovedPayload{Edges: edges}}
}

// NewPathAdded constructs a PathAdded event.
func NewPathAdded(origin Origin, network ids.BID, path string, bid ids.BID) Event {
	return Event{Kind: KindPathAdded, Origin: origin, PathAdded: &PathAddedPayload{Network: network, Path: path, Bid: bid}}
}

// NewPathUpdate constructs a PathUpdate event.
func NewPathUpdate(origin Origin, network ids.BID, oldPath, newPath string, bid ids.BID) Event {
	return Event{
		Kind:       KindPathUpdate,
		Origin:     origin,
		PathUpdate: &PathUpdatePayload{Network: network, OldPath: oldPath, NewPath: newPath, Bid: bid},
	}
}

// NewPathsRemoved constructs a PathsRemoved event.
func NewPathsRemoved(origin Origin, network ids.BID, paths ...string) Event {
	return Event{Kind: KindPathsRemoved, Origin: origin, PathsRemoved: &PathsRemovedPayload{Network: network, Paths: paths}}
}
