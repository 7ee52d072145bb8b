package fswalk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestCollectSkipsHiddenDirsAndWrongExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", "# A\n")
	writeFile(t, root, "docs/nested/b.md", "# B\n")
	writeFile(t, root, "notes.txt", "not markdown")
	writeFile(t, root, ".obsidian/workspace.json", "{}")
	writeFile(t, root, "BeliefNetwork.json", `{"id":"x"}`)

	docs, err := Collect(root, nil, map[string]bool{"BeliefNetwork.json": true})
	require.NoError(t, err)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	assert.ElementsMatch(t, []string{"docs/a.md", "docs/nested/b.md"}, paths)
}

func TestCollectReadsSourceBytes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "# Hello\n")

	docs, err := Collect(root, nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "# Hello\n", string(docs[0].Source))
}

func TestAssetLoaderResolvesRelativeToDocDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "shared/logo.png", "pretend-png-bytes")

	loader := AssetLoader{Root: root}
	content, ok := loader.Load("teams/a/README.md", "../../shared/logo.png")
	require.True(t, ok)
	assert.Equal(t, "pretend-png-bytes", string(content))
}

func TestAssetLoaderMissingFileReturnsNotOK(t *testing.T) {
	loader := AssetLoader{Root: t.TempDir()}
	_, ok := loader.Load("a.md", "nowhere.png")
	assert.False(t, ok)
}

func TestAssetLoaderRejectsEscapeAboveRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "secret.txt", "nope")

	loader := AssetLoader{Root: root}
	rel, err := filepath.Rel(root, filepath.Join(outside, "secret.txt"))
	require.NoError(t, err)
	_, ok := loader.Load("a.md", rel)
	assert.False(t, ok)
}
