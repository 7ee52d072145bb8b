package builder

import (
	"fmt"

	"github.com/ali01/noetgraph/internal/ids"
)

// KeyIndex maps any of a node's identity keys to its BID. It backs two of
// the three lookup tiers the builder consults (spec.md §4.4's
// document_graph and session_graph); the third tier, the persistent cache,
// is reached through the CacheLookup interface instead since it may live
// behind a database connection.
type KeyIndex struct {
	byKey map[string]ids.BID
}

// NewKeyIndex returns an empty KeyIndex.
func NewKeyIndex() *KeyIndex {
	return &KeyIndex{byKey: make(map[string]ids.BID)}
}

// Lookup tries each key in order and returns the first hit.
func (k *KeyIndex) Lookup(keys []ids.NodeKey) (ids.BID, bool) {
	for _, key := range keys {
		if bid, ok := k.byKey[keyString(key)]; ok {
			return bid, true
		}
	}
	return ids.Nil, false
}

// Record associates bid with every key given, so a later lookup by any one
// of them resolves to the same node.
func (k *KeyIndex) Record(bid ids.BID, keys ...ids.NodeKey) {
	for _, key := range keys {
		k.byKey[keyString(key)] = bid
	}
}

// Forget removes every key entry pointing at bid — used when a node is
// renamed or removed so stale keys cannot resolve to a dead BID.
func (k *KeyIndex) Forget(bid ids.BID) {
	for s, b := range k.byKey {
		if b == bid {
			delete(k.byKey, s)
		}
	}
}

func keyString(k ids.NodeKey) string {
	if k.Kind == ids.KeyBid {
		return fmt.Sprintf("bid:%s", k.Bid)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Network, k.Str)
}
