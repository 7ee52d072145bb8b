package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ali01/noetgraph/internal/ids"
)

func TestBeliefNodeValidate(t *testing.T) {
	n := BeliefNode{Bid: ids.New(ids.Nil), Schema: "belief/v1", Title: "Hello"}
	assert.NoError(t, n.Validate())

	missingSchema := BeliefNode{Bid: ids.New(ids.Nil)}
	assert.Error(t, missingSchema.Validate())
}

func TestKindSetHasAndWith(t *testing.T) {
	var s KindSet
	s = s.With(KindDocument).With(KindNetwork)
	assert.True(t, s.Has(KindDocument))
	assert.True(t, s.Has(KindNetwork))
	assert.False(t, s.Has(KindTrace))
}
