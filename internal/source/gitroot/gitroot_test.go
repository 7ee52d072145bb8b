package gitroot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali01/noetgraph/internal/git"
)

// TestOpenAndCollect clones a small public repo (the same fixture the
// teacher's git.Manager tests use) and exercises Source.Collect end to end.
// It requires network access, matching the teacher's own git test style.
func TestOpenAndCollect(t *testing.T) {
	cfg := &git.Config{
		RepoURL:      "https://github.com/octocat/Hello-World.git",
		Branch:       "master",
		LocalPath:    "test-gitroot-clone",
		SyncInterval: 5 * time.Minute,
		AutoSync:     false,
		ShallowClone: true,
		SingleBranch: true,
	}
	_ = os.RemoveAll(cfg.LocalPath)
	defer os.RemoveAll(cfg.LocalPath)

	src, err := Open(context.Background(), cfg, []string{".md"}, nil)
	require.NoError(t, err)

	// The octocat/Hello-World fixture has no .md files; Collect should
	// still succeed and simply return an empty set.
	docs, err := src.Collect()
	require.NoError(t, err)
	assert.Empty(t, docs)
}
