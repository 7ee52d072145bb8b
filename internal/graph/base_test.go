package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/ids"
)

func TestApplyNodeUpdateThenRelationUpdate(t *testing.T) {
	base := NewBeliefBase()
	net := ids.New(ids.Nil)
	parent := ids.New(net)
	child := ids.New(net)

	base.Apply(event.NewNodeUpdate(event.Durable, parent, event.NodeBody{Title: "Parent"}))
	base.Apply(event.NewNodeUpdate(event.Durable, child, event.NodeBody{Title: "Child"}))
	base.Apply(event.NewRelationUpdate(event.Durable, parent, child, event.WeightBody{
		Kind: "section", DocPaths: []string{"docs/a.md"},
	}))

	require.True(t, base.IsBalanced())
	out := base.OutEdges(parent)
	require.Len(t, out, 1)
	assert.Equal(t, child, out[0].Sink)
}

func TestRelationUpdateMergesDocPathsInsteadOfReplacing(t *testing.T) {
	base := NewBeliefBase()
	net := ids.New(ids.Nil)
	a, b := ids.New(net), ids.New(net)

	base.Apply(event.NewRelationUpdate(event.Durable, a, b, event.WeightBody{
		Kind: "reference", DocPaths: []string{"docs/a.md"},
	}))
	base.Apply(event.NewRelationUpdate(event.Durable, a, b, event.WeightBody{
		Kind: "reference", DocPaths: []string{"docs/b.md"},
	}))

	ref := EdgeRef{Source: a, Sink: b, Kind: WeightReference}
	w := base.Graph().Relations[ref]
	assert.Equal(t, []string{"docs/a.md", "docs/b.md"}, w.DocPaths)
}

func TestNodesRemovedOrphansEdges(t *testing.T) {
	base := NewBeliefBase()
	net := ids.New(ids.Nil)
	a, b := ids.New(net), ids.New(net)
	base.Apply(event.NewNodeUpdate(event.Durable, a, event.NodeBody{}))
	base.Apply(event.NewNodeUpdate(event.Durable, b, event.NodeBody{}))
	base.Apply(event.NewRelationUpdate(event.Durable, a, b, event.WeightBody{Kind: "reference"}))

	base.Apply(event.NewNodesRemoved(event.Durable, b))

	assert.False(t, base.IsBalanced())
	assert.Equal(t, []ids.BID{b}, base.FindOrphanedEdges())
}

func TestApplyRenameMigratesEdges(t *testing.T) {
	base := NewBeliefBase()
	net := ids.New(ids.Nil)
	parent := ids.New(net)
	oldChild := ids.New(net)
	newChild := ids.New(net)

	base.Apply(event.NewNodeUpdate(event.Durable, parent, event.NodeBody{Title: "Parent"}))
	base.Apply(event.NewRelationUpdate(event.Durable, parent, oldChild, event.WeightBody{
		Kind: "section", DocPaths: []string{"docs/a.md"},
	}))

	derived := base.Apply(event.NewNodeRenamed(event.Durable, oldChild, newChild))
	require.NotEmpty(t, derived)

	assert.Empty(t, base.OutEdges(oldChild))
	out := base.OutEdges(parent)
	require.Len(t, out, 1)
	assert.Equal(t, newChild, out[0].Sink)
}

func TestSpeculativeEventsDoNotMutateState(t *testing.T) {
	base := NewBeliefBase()
	net := ids.New(ids.Nil)
	a, b := ids.New(net), ids.New(net)

	derived := base.Apply(event.Event{
		Kind:   event.KindRelationUpdate,
		Origin: event.Speculative,
		RelationUpdate: &event.RelationUpdatePayload{
			Source: a, Sink: b, Weight: event.WeightBody{Kind: "reference"},
		},
	})

	assert.Len(t, derived, 1)
	assert.Empty(t, base.Graph().Relations)
}

func TestMergeGraphsUnionsDocPaths(t *testing.T) {
	net := ids.New(ids.Nil)
	a, b := ids.New(net), ids.New(net)
	ref := EdgeRef{Source: a, Sink: b, Kind: WeightReference}

	g1 := NewBeliefGraph()
	g1.UpsertRelation(ref, Weight{Kind: WeightReference, DocPaths: []string{"docs/a.md"}})

	g2 := NewBeliefGraph()
	g2.UpsertRelation(ref, Weight{Kind: WeightReference, DocPaths: []string{"docs/b.md"}})

	g1.Merge(g2)
	assert.Equal(t, []string{"docs/a.md", "docs/b.md"}, g1.Relations[ref].DocPaths)
}
