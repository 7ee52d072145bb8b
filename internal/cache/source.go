// Package cache declares the persistent cache contract (spec.md §4.6): a
// BeliefSource that accepts committed batches of events and answers three
// query shapes (balanced, unbalanced, trace) plus the key lookup the
// builder's third tier needs. Subpackages memcache/sqlitecache/boltcache/
// pgcache each back the contract with a different store; all are expected
// to be observationally equivalent for the same committed history (spec.md
// §8 property 5), which is what memcache exists to test against.
package cache

import (
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// BeliefSource is the persistent cache's contract. Every method must be
// safe to call concurrently with Commit from a different goroutine only
// between compiler sessions — within a session, the concurrency model
// (spec.md §5) is cooperative single-threaded, so no BeliefSource
// implementation needs its own locking beyond what protects it from
// concurrent *sessions*.
type BeliefSource interface {
	// LookupKeys resolves a node's BID from any of its candidate keys, the
	// third tier of the builder's identity lookup.
	LookupKeys(keys []ids.NodeKey) (ids.BID, bool)

	// EvalBalanced returns the subgraph of network with every orphaned
	// edge pruned: every relation's endpoints resolve to a present node.
	EvalBalanced(network ids.BID) (*graph.BeliefBase, error)

	// EvalUnbalanced returns the full committed graph for network. A
	// relation whose endpoint has no node on file is never left dangling:
	// the endpoint is loaded as a placeholder tagged Trace, so every edge
	// in the result resolves to some node, real or stub.
	EvalUnbalanced(network ids.BID) (*graph.BeliefBase, error)

	// EvalTrace returns every edge reachable from bid via a Trace-kind
	// relation, for following a belief back to its supporting evidence.
	EvalTrace(bid ids.BID) ([]graph.EdgeRef, error)

	// Commit applies a batch of events, all belonging to network, atomically:
	// either every event in batch is durably recorded, or none are. A batch
	// is scoped to one network because relation/removal events don't carry
	// their own network tag (only node/path events do); the compiler always
	// commits one network's session graph at a time.
	Commit(network ids.BID, batch []event.Event) error
}
