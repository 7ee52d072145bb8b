package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali01/noetgraph/internal/cache/memcache"
	"github.com/ali01/noetgraph/internal/codec"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
	"github.com/ali01/noetgraph/internal/markdown"
	"github.com/ali01/noetgraph/internal/source/fswalk"
)

func newTestCompiler() (*Compiler, *memcache.Store) {
	reg := codec.NewRegistry()
	reg.Register(markdown.New())
	store := memcache.New()
	return New(reg, store, nil), store
}

func TestCompileSingleDocumentBuildsBalancedGraph(t *testing.T) {
	c, _ := newTestCompiler()
	net := ids.New(ids.Nil)

	res, err := c.Compile(context.Background(), net, "markdown", []Document{
		{Path: "docs/a.md", Source: []byte("# Intro\n\nHello.\n\n## Details\n\nMore.\n")},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Unresolved)
	assert.True(t, res.Base.IsBalanced())
	assert.GreaterOrEqual(t, len(res.Base.Graph().Nodes), 3)
}

func TestCompileResolvesCrossDocumentReferenceOnSecondPass(t *testing.T) {
	c, _ := newTestCompiler()
	net := ids.New(ids.Nil)

	docs := []Document{
		{Path: "docs/a.md", Source: []byte("See [[Target]] for details.\n")},
		{Path: "docs/b.md", Source: []byte("---\nid: target-doc\ntitle: Target\n---\nBody.\n")},
	}
	res, err := c.Compile(context.Background(), net, "markdown", docs)
	require.NoError(t, err)
	assert.Empty(t, res.Unresolved, "the reference to Target should resolve once docs/b.md is built")
}

func TestCompileMintsExternalStubForDanglingReference(t *testing.T) {
	c, _ := newTestCompiler()
	net := ids.New(ids.Nil)

	res, err := c.Compile(context.Background(), net, "markdown", []Document{
		{Path: "docs/a.md", Source: []byte("See [[Nowhere]] for details.\n")},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Unresolved)

	foundExternal := false
	for _, n := range res.Base.Graph().Nodes {
		if n.Kinds.Has(graph.KindExternal) && n.Title == "Nowhere" {
			foundExternal = true
		}
	}
	assert.True(t, foundExternal, "dangling reference should mint an External stub node")
}

func TestCompileDedupesSharedAssetAcrossDocuments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shared"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "shared", "logo.png"), []byte("pretend-png-bytes"), 0o644))

	c, _ := newTestCompiler()
	c.Assets = fswalk.AssetLoader{Root: root}
	net := ids.New(ids.Nil)

	docs := []Document{
		{Path: "teams/a/README.md", Source: []byte("![[../../shared/logo.png]]\n")},
		{Path: "teams/b/README.md", Source: []byte("![[../../shared/logo.png]]\n")},
	}
	res, err := c.Compile(context.Background(), net, "markdown", docs)
	require.NoError(t, err)

	var assetNodes []ids.BID
	for bid, n := range res.Base.Graph().Nodes {
		if n.Kinds.Has(graph.KindAsset) {
			assetNodes = append(assetNodes, bid)
		}
	}
	require.Len(t, assetNodes, 1, "both embeds resolve to the same content-addressed asset node")

	assetBID := assetNodes[0]
	docPaths := map[string]bool{}
	for ref, w := range res.Base.Graph().Relations {
		if ref.Sink == assetBID {
			for _, p := range w.DocPaths {
				docPaths[p] = true
			}
		}
	}
	assert.True(t, docPaths["teams/a/README.md"], "the edge from teams/a should record its own document path")
	assert.True(t, docPaths["teams/b/README.md"], "the edge from teams/b should record its own document path")
}

func TestCompileCommitsToCache(t *testing.T) {
	c, store := newTestCompiler()
	net := ids.New(ids.Nil)

	_, err := c.Compile(context.Background(), net, "markdown", []Document{
		{Path: "docs/a.md", Source: []byte("# Intro\n\nHello.\n")},
	})
	require.NoError(t, err)

	committed, err := store.EvalUnbalanced(net)
	require.NoError(t, err)
	assert.NotEmpty(t, committed.Graph().Nodes)
}
