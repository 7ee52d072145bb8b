package ids

// KeyKind tags which identity dimension a NodeKey carries.
type KeyKind int

const (
	KeyBid KeyKind = iota
	KeyBref
	KeyID
	KeyTitle
	KeyPath
)

func (k KeyKind) String() string {
	switch k {
	case KeyBid:
		return "bid"
	case KeyBref:
		return "bref"
	case KeyID:
		return "id"
	case KeyTitle:
		return "title"
	case KeyPath:
		return "path"
	default:
		return "unknown"
	}
}

// NodeKey is a tagged union over the five identity dimensions a node can be
// looked up by. Every variant but Bid carries the owning network's BID,
// since Bref/Id/Title/Path are only unique within a network.
type NodeKey struct {
	Kind    KeyKind
	Network BID    // zero for Kind == KeyBid
	Bid     BID    // valid for Kind == KeyBid
	Str     string // Bref string, semantic id, normalized title, or path
}

// BidKey constructs a NodeKey that matches by BID alone.
func BidKey(bid BID) NodeKey {
	return NodeKey{Kind: KeyBid, Bid: bid}
}

// BrefKey constructs a NodeKey that matches by Bref within a network.
func BrefKey(network BID, bref Bref) NodeKey {
	return NodeKey{Kind: KeyBref, Network: network, Str: string(bref)}
}

// IDKey constructs a NodeKey that matches by semantic id within a network.
func IDKey(network BID, id string) NodeKey {
	return NodeKey{Kind: KeyID, Network: network, Str: id}
}

// TitleKey constructs a NodeKey that matches by normalized title within a
// network. Title is excluded from section key sets (spec.md §4.4.1) because
// sibling headings may share a title; it remains valid for documents.
func TitleKey(network BID, normalizedTitle string) NodeKey {
	return NodeKey{Kind: KeyTitle, Network: network, Str: normalizedTitle}
}

// PathKey constructs a NodeKey that matches by path within a network.
func PathKey(network BID, path string) NodeKey {
	return NodeKey{Kind: KeyPath, Network: network, Str: path}
}

// Equal reports whether two keys name the same identity dimension and
// value.
func (k NodeKey) Equal(other NodeKey) bool {
	if k.Kind != other.Kind {
		return false
	}
	if k.Kind == KeyBid {
		return k.Bid == other.Bid
	}
	return k.Network == other.Network && k.Str == other.Str
}
