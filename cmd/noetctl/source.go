package main

import (
	"context"
	"fmt"

	"github.com/ali01/noetgraph/internal/compiler"
	"github.com/ali01/noetgraph/internal/config"
	"github.com/ali01/noetgraph/internal/ids"
	"github.com/ali01/noetgraph/internal/networkroot"
	"github.com/ali01/noetgraph/internal/source/fswalk"
	"github.com/ali01/noetgraph/internal/source/gitroot"
)

// resolvedSource is one network root ready to collect documents from,
// either directly off disk or backed by a Git clone.
type resolvedSource struct {
	network ids.BID
	codec   string
	root    string // local directory docs are collected from
	git     *gitroot.Source
}

// resolveSource opens cfg's configured source (directory or git), locates
// a BeliefNetwork manifest if one is present at the root, and derives the
// network BID either from the manifest's own id or, absent a manifest,
// deterministically from the root path so repeat runs still land on the
// same network.
func resolveSource(ctx context.Context, sc config.SourceConfig) (*resolvedSource, error) {
	extensions := sc.Extensions
	if len(extensions) == 0 {
		extensions = fswalk.DefaultExtensions
	}

	rs := &resolvedSource{codec: "markdown"}

	switch sc.Kind {
	case "directory":
		rs.root = sc.Directory
	case "git":
		gs, err := gitroot.Open(ctx, &sc.Git, extensions, nil)
		if err != nil {
			return nil, fmt.Errorf("open git source: %w", err)
		}
		rs.git = gs
		rs.root = sc.Git.LocalPath
	default:
		return nil, fmt.Errorf("unknown source kind %q", sc.Kind)
	}

	if manifestPath, ok := networkroot.Discover(rs.root); ok {
		manifest, err := networkroot.Load(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("load network manifest: %w", err)
		}
		rs.network = ids.NetworkBID(manifest.ID)
		rs.codec = manifest.Config.Codec
	} else {
		rs.network = ids.NetworkBID(rs.root)
	}

	return rs, nil
}

// collect walks rs.root (or the git clone's local checkout) and returns
// every matching document.
func (rs *resolvedSource) collect(extensions []string) ([]compiler.Document, error) {
	if len(extensions) == 0 {
		extensions = fswalk.DefaultExtensions
	}
	if rs.git != nil {
		return rs.git.Collect()
	}
	return fswalk.Collect(rs.root, extensions, nil)
}
