package networkroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BeliefNetwork.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"docs","config":{"strict_format":true}}`), 0o644))

	net, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "docs", net.ID)
	assert.True(t, net.Config.StrictFormat)
	assert.Equal(t, "markdown", net.Config.Codec, "unset fields keep the default")
	assert.Equal(t, 100, net.Config.BatchSize)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BeliefNetwork.toml")
	content := "id = \"docs\"\n\n[config]\ncache_backend = \"bolt\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	net, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", net.Config.CacheBackend)
}

func TestLoadMissingIDFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BeliefNetwork.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	_, ok := Discover(dir)
	assert.False(t, ok)

	path := filepath.Join(dir, "BeliefNetwork.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"docs"}`), 0o644))

	found, ok := Discover(dir)
	require.True(t, ok)
	assert.Equal(t, path, found)
}
