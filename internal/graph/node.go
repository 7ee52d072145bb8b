// Package graph holds the belief graph's core data model: nodes, weighted
// multigraph edges, the flat BeliefGraph transport form, and the indexed
// BeliefBase used for compilation and querying.
package graph

import (
	"github.com/go-playground/validator/v10"

	"github.com/ali01/noetgraph/internal/ids"
)

var validate = validator.New()

// Kind is a bit flag identifying one of a node's roles. A node can carry
// more than one — a document that is also a network root sets both
// KindDocument and KindNetwork.
type Kind uint16

const (
	KindBelief Kind = 1 << iota
	KindNetwork
	KindSection
	KindDocument
	KindTrace
	KindAsset
	KindExternal
)

// KindSet is the bitwise-OR of the Kind flags a node carries.
type KindSet uint16

// Has reports whether any bit in k is set in s.
func (s KindSet) Has(k Kind) bool { return s&KindSet(k) != 0 }

// With returns a copy of s with k added.
func (s KindSet) With(k Kind) KindSet { return s | KindSet(k) }

// BeliefNode is a vertex of the belief graph. Bid is permanent once
// assigned; Schema/SemanticID/Title/Payload carry the content a codec
// produced for it. Version is a monotonically increasing counter used to
// resolve merge conflicts between a session graph and the persistent cache.
type BeliefNode struct {
	Bid        ids.BID
	Kinds      KindSet
	Schema     string `validate:"required"`
	SemanticID string `validate:"omitempty,max=256"`
	Title      string `validate:"omitempty,max=512"`
	Payload    map[string]any
	Version    int64 `validate:"gte=0"`
}

// Validate checks the struct-tag constraints above, catching a builder bug
// (empty schema, absurd title length) before the node reaches the cache.
func (n BeliefNode) Validate() error {
	return validate.Struct(n)
}

// Clone returns a deep-enough copy safe to mutate independently (Payload is
// copied one level deep).
func (n BeliefNode) Clone() BeliefNode {
	c := n
	if n.Payload != nil {
		c.Payload = make(map[string]any, len(n.Payload))
		for k, v := range n.Payload {
			c.Payload[k] = v
		}
	}
	return c
}
