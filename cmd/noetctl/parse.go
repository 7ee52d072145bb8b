package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ali01/noetgraph/internal/codec"
	"github.com/ali01/noetgraph/internal/compiler"
	"github.com/ali01/noetgraph/internal/eventbus"
	"github.com/ali01/noetgraph/internal/ids"
	"github.com/ali01/noetgraph/internal/markdown"
	"github.com/ali01/noetgraph/internal/source/fswalk"
)

var parseCmd = &cobra.Command{
	Use:               "parse",
	Short:             "Compile a network's documents once and commit the resulting graph",
	Args:              cobra.NoArgs,
	PersistentPreRunE: loadConfig,
	RunE:              runParse,
}

func runParse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rs, err := resolveSource(ctx, cfg.Source)
	if err != nil {
		return err
	}

	docs, err := rs.collect(cfg.Source.Extensions)
	if err != nil {
		return fmt.Errorf("collect documents: %w", err)
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
	result, err := comp.Compile(ctx, rs.network, rs.codec, docs)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	logger.Info("parse complete",
		"network", rs.network.String(),
		"documents", len(docs),
		"nodes", len(result.Base.Graph().Nodes),
		"relations", len(result.Base.Graph().Relations),
		"diagnostics", len(result.Diagnostics),
		"dangling_refs", len(result.Unresolved),
	)
	for _, d := range result.Diagnostics {
		logger.Warn("diagnostic", "severity", d.Severity.String(), "message", d.Message)
	}

	if cfg.Redis.Publish {
		if err := publishResult(ctx, rs.network, result); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
	}

	return nil
}

// publishResult fans a compile result's committed events out over the
// event bus, used by both the one-shot parse command (when redis.publish
// is enabled) and the watch command after every recompile.
func publishResult(ctx context.Context, network ids.BID, result *compiler.Result) error {
	client, err := eventbus.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	bus := eventbus.New(client)
	return bus.Publish(ctx, network, result.Events)
}
