package boltcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCommitThenLookupKeys(t *testing.T) {
	s := openTest(t)
	net := ids.New(ids.Nil)
	bid := ids.New(net)
	key := ids.PathKey(net, "docs/a.md")

	err := s.Commit(net, []event.Event{
		event.NewNodeUpdate(event.Durable, bid, event.NodeBody{Title: "A"}, key),
	})
	require.NoError(t, err)

	got, ok := s.LookupKeys([]ids.NodeKey{key})
	require.True(t, ok)
	assert.Equal(t, bid, got)
}

func TestEvalBalancedPrunesOrphans(t *testing.T) {
	s := openTest(t)
	net := ids.New(ids.Nil)
	a := ids.New(net)
	b := ids.New(net)

	err := s.Commit(net, []event.Event{
		event.NewNodeUpdate(event.Durable, a, event.NodeBody{Title: "A"}),
		event.NewRelationUpdate(event.Durable, a, b, event.WeightBody{Kind: "reference"}),
	})
	require.NoError(t, err)

	balanced, err := s.EvalBalanced(net)
	require.NoError(t, err)
	assert.Empty(t, balanced.Graph().Relations)

	unbalanced, err := s.EvalUnbalanced(net)
	require.NoError(t, err)
	assert.Len(t, unbalanced.Graph().Relations, 1)

	orphanNode, ok := unbalanced.Graph().Nodes[b]
	require.True(t, ok, "eval_unbalanced must load a placeholder for a referenced node it has no data for")
	assert.True(t, orphanNode.Kinds.Has(graph.KindTrace), "the placeholder is tagged Trace, not a normal kind")
}

func TestRelationUpdateMergesDocPathsAcrossCommits(t *testing.T) {
	s := openTest(t)
	net := ids.New(ids.Nil)
	a := ids.New(net)
	b := ids.New(net)

	require.NoError(t, s.Commit(net, []event.Event{
		event.NewNodeUpdate(event.Durable, a, event.NodeBody{Title: "A"}),
		event.NewNodeUpdate(event.Durable, b, event.NodeBody{Title: "B"}),
		event.NewRelationUpdate(event.Durable, a, b, event.WeightBody{Kind: "reference", DocPaths: []string{"docs/a.md"}}),
	}))
	require.NoError(t, s.Commit(net, []event.Event{
		event.NewRelationUpdate(event.Durable, a, b, event.WeightBody{Kind: "reference", DocPaths: []string{"docs/c.md"}}),
	}))

	full, err := s.EvalUnbalanced(net)
	require.NoError(t, err)
	ref := graph.EdgeRef{Source: a, Sink: b, Kind: graph.WeightReference}
	w, ok := full.Graph().Relations[ref]
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"docs/a.md", "docs/c.md"}, w.DocPaths)
}

func TestEvalTraceWalksTraceEdgesOnly(t *testing.T) {
	s := openTest(t)
	net := ids.New(ids.Nil)
	belief := ids.New(net)
	trace := ids.New(net)
	other := ids.New(net)

	err := s.Commit(net, []event.Event{
		event.NewNodeUpdate(event.Durable, belief, event.NodeBody{Title: "Belief"}),
		event.NewNodeUpdate(event.Durable, trace, event.NodeBody{Title: "Trace"}),
		event.NewNodeUpdate(event.Durable, other, event.NodeBody{Title: "Other"}),
		event.NewRelationUpdate(event.Durable, belief, trace, event.WeightBody{Kind: string(graph.WeightTrace)}),
		event.NewRelationUpdate(event.Durable, belief, other, event.WeightBody{Kind: string(graph.WeightReference)}),
	})
	require.NoError(t, err)

	edges, err := s.EvalTrace(belief)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, trace, edges[0].Sink)
}
