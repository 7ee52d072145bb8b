package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadFromYAMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noetctl.yaml")
	content := "cache:\n  backend: bolt\n  bolt_path: /tmp/net.bolt\nsource:\n  kind: directory\n  directory: ./network\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Cache.Backend)
	assert.Equal(t, "/tmp/net.bolt", cfg.Cache.BoltPath)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep the default")
}

func TestValidateRejectsUnknownCacheBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingDirectoryWhenSourceKindIsDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Kind = "directory"
	cfg.Source.Directory = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownSourceKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Kind = "s3"
	assert.Error(t, cfg.Validate())
}
