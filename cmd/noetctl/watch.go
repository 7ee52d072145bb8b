package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ali01/noetgraph/internal/codec"
	"github.com/ali01/noetgraph/internal/compiler"
	"github.com/ali01/noetgraph/internal/markdown"
	"github.com/ali01/noetgraph/internal/source/fswalk"
)

// debounceWindow coalesces a burst of filesystem events (an editor's
// save-via-rename, a `git checkout` touching many files at once) into a
// single recompile instead of one per event.
const debounceWindow = 300 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:               "watch",
	Short:             "Recompile a network whenever its documents change",
	Args:              cobra.NoArgs,
	PersistentPreRunE: loadConfig,
	RunE:              runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rs, err := resolveSource(ctx, cfg.Source)
	if err != nil {
		return err
	}

	store, closeStore, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := codec.NewRegistry()
	registry.Register(markdown.New())
	comp := compiler.New(registry, store, logger)
	comp.Assets = fswalk.AssetLoader{Root: rs.root}

	recompile := func() {
		docs, err := rs.collect(cfg.Source.Extensions)
		if err != nil {
			logger.Error("collect documents", "err", err)
			return
		}
		result, err := comp.Compile(ctx, rs.network, rs.codec, docs)
		if err != nil {
			logger.Error("compile", "err", err)
			return
		}
		logger.Info("recompiled", "nodes", len(result.Base.Graph().Nodes), "relations", len(result.Base.Graph().Relations))
		if cfg.Redis.Publish {
			if err := publishResult(ctx, rs.network, result); err != nil {
				logger.Error("publish events", "err", err)
			}
		}
	}

	recompile()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopWatching, changes, err := watchSource(ctx, rs)
	if err != nil {
		return err
	}
	defer stopWatching()

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-quit:
			logger.Info("shutting down watch")
			return nil
		case <-changes:
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(debounceWindow)
		case <-debounce.C:
			recompile()
		}
	}
}

// watchSource starts the change-notification mechanism appropriate to
// rs's kind: fsnotify for a plain directory (recursively, since fsnotify
// itself only watches the directories it's explicitly told about), or the
// Git manager's poll-based auto-sync for a Git source. changes fires
// (possibly with no payload information beyond "something changed") each
// time a recompile might be warranted.
func watchSource(ctx context.Context, rs *resolvedSource) (stop func(), changes <-chan struct{}, err error) {
	out := make(chan struct{}, 1)

	if rs.git != nil {
		stopGit := rs.git.Watch(ctx, func(changedFiles []string) {
			select {
			case out <- struct{}{}:
			default:
			}
		})
		return stopGit, out, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create file watcher: %w", err)
	}

	walkErr := filepath.WalkDir(rs.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("walk source tree: %w", walkErr)
	}

	go func() {
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("file watcher error", "err", werr)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() { watcher.Close() }, out, nil
}
