package ids

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBIDIsUnique(t *testing.T) {
	net := New(Nil)
	a := New(net)
	b := New(net)
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
}

func TestAssetBIDIsContentAddressed(t *testing.T) {
	a1 := AssetBID([]byte("hello"))
	a2 := AssetBID([]byte("hello"))
	a3 := AssetBID([]byte("goodbye"))

	assert.Equal(t, a1, a2, "same content must yield the same BID")
	assert.NotEqual(t, a1, a3, "different content must yield a different BID")
}

func TestURLBIDIsContentAddressed(t *testing.T) {
	u1 := URLBID([]byte("<html>v1</html>"))
	u2 := URLBID([]byte("<html>v2</html>"))
	assert.NotEqual(t, u1, u2)
}

func TestAssetAndURLNamespacesDoNotCollide(t *testing.T) {
	content := []byte("same bytes")
	assert.NotEqual(t, AssetBID(content), URLBID(content))
}

func TestBIDRoundTripsThroughString(t *testing.T) {
	net := New(Nil)
	b := New(net)
	parsed, err := ParseBID(b.String())
	assert.NoError(t, err)
	assert.Equal(t, b, parsed)
}

func TestNetworkBIDIsStablePerManifestID(t *testing.T) {
	a1 := NetworkBID("docs")
	a2 := NetworkBID("docs")
	a3 := NetworkBID("other-network")

	assert.Equal(t, a1, a2, "recompiling the same manifest id must land on the same network BID")
	assert.NotEqual(t, a1, a3)
}

func TestBIDMarshalsAsJSONString(t *testing.T) {
	net := New(Nil)
	b := New(net)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `"`+b.String()+`"`, string(data))

	var roundTripped BID
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	assert.Equal(t, b, roundTripped)
}

func TestNewBrefIsDeterministic(t *testing.T) {
	assert.Equal(t, NewBref("Introduction"), NewBref("Introduction"))
	assert.NotEqual(t, NewBref("Introduction"), NewBref("introduction"))
}

func TestNodeKeyEqual(t *testing.T) {
	net := New(Nil)
	a := PathKey(net, "docs/a.md")
	b := PathKey(net, "docs/a.md")
	c := PathKey(net, "docs/b.md")
	other := New(Nil)
	d := PathKey(other, "docs/a.md")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d), "same path in a different network is a different key")

	bid := New(net)
	assert.True(t, BidKey(bid).Equal(BidKey(bid)))
}
