// Package ids defines the identity primitives of the belief graph: BIDs,
// Brefs, and the NodeKey tagged union used to speculate identity before a
// node's final BID is known.
package ids

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// BID is a 128-bit, time-ordered identifier permanently assigned to a node.
// Two BIDs with the same bytes, from any origin, name the same node.
type BID uuid.UUID

// Nil is the zero BID, used as a sentinel for "no network" (global nodes).
var Nil BID

// String renders the BID in canonical UUID form.
func (b BID) String() string {
	return uuid.UUID(b).String()
}

// IsNil reports whether b is the zero value.
func (b BID) IsNil() bool {
	return b == Nil
}

// ParseBID parses a BID from its canonical string form.
func ParseBID(s string) (BID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return BID(u), nil
}

// MarshalText renders b as its canonical UUID string, so a BID serializes
// as a JSON string (via encoding/json's TextMarshaler support) instead of
// the raw 16-byte array its underlying uuid.UUID would otherwise produce.
func (b BID) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses b back from its canonical UUID string form.
func (b *BID) UnmarshalText(text []byte) error {
	parsed, err := ParseBID(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// New generates a fresh, time-ordered BID (UUIDv7 layout: timestamp prefix,
// random suffix). The network argument does not contribute to the generated
// bytes: BIDs for every network come from the same UUIDv7 space, and a BID
// carries no trace of the network it was minted for.
func New(network BID) BID {
	// uuid.NewV7 is time-ordered like the v6-style identifier spec.md calls
	// for; the network BID has no bearing on the random suffix beyond being
	// recorded by callers as the owning namespace (see NodeKey).
	u, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the global entropy source is broken;
		// fall back to a random v4 rather than panic mid-compile.
		u = uuid.New()
	}
	return BID(u)
}

// assetNamespace and urlNamespace are fixed well-known namespaces for
// content-addressed BIDs, distinct from any network's namespace so that an
// asset BID can never collide with a time-ordered node BID.
var (
	assetNamespace   = uuid.MustParse("6b1f9f9a-9e0a-4f0a-8a1a-5c6b2e9d0a01")
	urlNamespace     = uuid.MustParse("6b1f9f9a-9e0a-4f0a-8a1a-5c6b2e9d0a02")
	networkNamespace = uuid.MustParse("6b1f9f9a-9e0a-4f0a-8a1a-5c6b2e9d0a03")
)

// NetworkBID derives a stable BID from a BeliefNetwork manifest's own ID
// string, the same way AssetBID derives one from content: running the
// compiler twice over the same manifest id must resolve to the same
// network BID so each run commits into the same cache rows rather than
// minting a fresh, disconnected namespace every time.
func NetworkBID(manifestID string) BID {
	return BID(uuid.NewSHA1(networkNamespace, []byte(manifestID)))
}

// AssetBID derives a content-addressed BID from an asset's raw bytes. The
// same bytes always produce the same BID; changing the bytes changes the
// BID, which is what lets downstream consumers detect asset changes without
// an explicit diff.
func AssetBID(content []byte) BID {
	return BID(uuid.NewSHA1(assetNamespace, content))
}

// URLBID derives a content-addressed BID from a fetched external URL's
// response text.
func URLBID(fetchedText []byte) BID {
	return BID(uuid.NewSHA1(urlNamespace, fetchedText))
}

// Bref is a short content-hash fingerprint of a node's canonical textual
// form (typically its title plus disambiguating context). It is not a
// primary key: it is used for URL anchors, the collision-fallback anchor,
// and UI-level cross references. Open question (spec.md §9): Bref
// uniqueness is treated as per-network, so a Bref is only meaningful
// alongside the network BID it was computed within.
type Bref string

// NewBref computes the Bref for the given canonical text.
func NewBref(canonicalText string) Bref {
	sum := sha256.Sum256([]byte(canonicalText))
	return Bref(hex.EncodeToString(sum[:])[:10])
}

// String satisfies fmt.Stringer.
func (r Bref) String() string { return string(r) }
