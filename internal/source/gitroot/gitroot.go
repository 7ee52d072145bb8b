// Package gitroot sources a network's documents from a Git remote instead
// of a bare local directory, wiring internal/git.Manager (the teacher's
// Obsidian-vault clone/pull/auto-sync manager, reused here unchanged since
// "clone a markdown tree from Git and notify on changed files" is exactly
// this package's job too) to internal/source/fswalk's directory collector.
package gitroot

import (
	"context"
	"fmt"

	"github.com/ali01/noetgraph/internal/compiler"
	"github.com/ali01/noetgraph/internal/git"
	"github.com/ali01/noetgraph/internal/source/fswalk"
)

// Source clones (or opens) a Git-backed network root and collects its
// documents on demand.
type Source struct {
	manager    *git.Manager
	extensions []string
	exclude    map[string]bool
}

// Open initializes cfg's repository (cloning if LocalPath doesn't already
// hold one) and returns a Source ready to Collect from it.
func Open(ctx context.Context, cfg *git.Config, extensions []string, exclude map[string]bool) (*Source, error) {
	manager, err := git.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("gitroot: new manager: %w", err)
	}
	if err := manager.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("gitroot: initialize: %w", err)
	}
	return &Source{manager: manager, extensions: extensions, exclude: exclude}, nil
}

// Collect walks the manager's current local checkout and returns every
// matching document, exactly as fswalk.Collect would on a plain directory.
func (s *Source) Collect() ([]compiler.Document, error) {
	return fswalk.Collect(s.manager.GetLocalPath(), s.extensions, s.exclude)
}

// Sync pulls the latest commit from the remote. The caller decides whether
// to recompile afterward — Source does not call the compiler itself.
func (s *Source) Sync(ctx context.Context) error {
	return s.manager.Pull(ctx)
}

// Watch wires a callback that fires with the set of changed relative paths
// whenever an auto-sync pull (per cfg.AutoSync/cfg.SyncInterval) brings in
// new commits. Call Stop via the returned func to end auto-sync.
func (s *Source) Watch(ctx context.Context, onChange func(changedFiles []string)) func() {
	s.manager.SetUpdateCallback(onChange)
	s.manager.StartAutoSync(ctx)
	return s.manager.Stop
}
