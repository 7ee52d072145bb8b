// Package compiler orchestrates one compile session: parsing every source
// document in a network's working set, resolving identities across
// documents over multiple passes until no more references resolve, minting
// External stub nodes for whatever is left, then committing the session's
// durable events to the persistent cache. Grounded on the teacher's
// VaultService.ParseAndIndexVault pipeline (pull → parse → build → store,
// with panic recovery and a single-flight parse lock), generalized from a
// single pass over a flat vault into converge-to-fixpoint over documents
// whose cross-references may only resolve once a later document is built.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/ali01/noetgraph/internal/builder"
	"github.com/ali01/noetgraph/internal/cache"
	"github.com/ali01/noetgraph/internal/codec"
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
	"github.com/ali01/noetgraph/internal/pathmap"
)

// maxConvergencePasses bounds the unresolved-reference retry loop: each
// pass can only resolve a ref that some other document's pass newly
// minted, so the loop cannot usefully run longer than the document count,
// but a hard ceiling keeps a pathological input (a reference cycle that
// never resolves) from looping forever.
const maxConvergencePasses = 64

// Document is one source file handed to the compiler: its path (used both
// as a session cache key and as the doc_paths entry recorded on every edge
// it contributes) and raw bytes.
type Document struct {
	Path   string
	Source []byte
}

// Result is the outcome of one compile session.
type Result struct {
	Base        *graph.BeliefBase
	PathMap     *pathmap.PathMap
	Diagnostics []codec.Diagnostic
	Unresolved  []builder.UnresolvedRef // still unresolved after External minting attempted only for truly dangling refs; empty in normal operation
	Events      []event.Event           // every event committed this session, Durable-origin, for callers that fan them out (internal/eventbus)
}

// AssetLoader loads the raw bytes of a non-document file a document
// references (e.g. an embedded WikiLink's image target), relative to that
// document's own path. A nil Compiler.Assets, or an ok=false result,
// leaves the reference to mint as an External stub exactly as any other
// dangling reference does — asset resolution is strictly an enrichment of
// that existing fallback, never a new way to fail.
type AssetLoader interface {
	Load(docPath, target string) ([]byte, bool)
}

// Compiler wires a codec registry and a persistent cache into the
// multi-pass build loop.
type Compiler struct {
	Registry *codec.Registry
	Source   cache.BeliefSource
	Assets   AssetLoader
	Logger   *slog.Logger

	mu        sync.Mutex
	compiling bool
}

// New returns a Compiler. A nil logger falls back to slog.Default().
func New(registry *codec.Registry, source cache.BeliefSource, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{Registry: registry, Source: source, Logger: logger}
}

// Compile builds network's working set of documents, converges cross-
// document references, mints External stubs for anything still dangling,
// and commits every durable event produced to the persistent cache.
func (c *Compiler) Compile(ctx context.Context, network ids.BID, codecName string, docs []Document) (result *Result, err error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compiler: panic during compile: %v", r)
			c.Logger.Error("compile panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	logger := c.Logger.With("network", network.String())
	logger.Info("starting compile", "documents", len(docs))

	b := builder.New(c.Registry)
	session := builder.NewKeyIndex()

	sorted := append([]Document{}, docs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var allEvents []event.Event
	var diagnostics []codec.Diagnostic
	var unresolved []builder.UnresolvedRef
	docRoots := make(map[string]ids.BID, len(sorted))

	for _, doc := range sorted {
		res, perr := b.BuildDocument(codecName, codec.Context{Network: network}, doc.Path, doc.Source, session, c.Source)
		if perr != nil {
			return nil, fmt.Errorf("compiler: building %s: %w", doc.Path, perr)
		}
		allEvents = append(allEvents, res.Events...)
		diagnostics = append(diagnostics, res.Diagnostics...)
		unresolved = append(unresolved, res.Unresolved...)
		if root := documentRoot(res.Graph); !root.IsNil() {
			docRoots[doc.Path] = root
		}
	}

	for pass := 0; pass < maxConvergencePasses && len(unresolved) > 0; pass++ {
		resolved, remaining := builder.RetryUnresolved(unresolved, session, c.Source)
		if len(resolved) == 0 {
			break
		}
		allEvents = append(allEvents, resolved...)
		unresolved = remaining
		logger.Info("convergence pass resolved references", "pass", pass, "resolved", len(resolved), "remaining", len(remaining))
	}

	candidates := unresolved
	unresolved = nil
	var stillDangling []builder.UnresolvedRef
	for _, u := range candidates {
		if u.Kind == graph.WeightAsset && c.Assets != nil {
			if content, ok := c.Assets.Load(u.DocPath, u.Target.Str); ok {
				assetBid := ids.AssetBID(content)
				title := u.DisplayText
				if title == "" {
					title = path.Base(u.Target.Str)
				}
				allEvents = append(allEvents, event.NewNodeUpdate(event.Session, assetBid, event.NodeBody{
					Kinds: uint32(graph.KindAsset), Title: title,
				}, u.Target))
				allEvents = append(allEvents, event.NewRelationUpdate(event.Session, u.Source, assetBid, event.WeightBody{
					Kind: string(u.Kind), DocPaths: []string{u.DocPath},
				}))
				session.Record(assetBid, u.Target)
				logger.Info("resolved embedded asset reference", "doc_path", u.DocPath, "target", u.Target.Str)
				continue
			}
		}

		stillDangling = append(stillDangling, u)
		stubBid := ids.New(network)
		stubKeys := append([]ids.NodeKey{u.Target}, u.Fallbacks...)
		title := u.DisplayText
		if title == "" {
			title = stubTitle(stubKeys)
		}
		allEvents = append(allEvents, event.NewNodeUpdate(event.Session, stubBid, event.NodeBody{
			Kinds: uint32(graph.KindExternal), Title: title,
		}, stubKeys...))
		allEvents = append(allEvents, event.NewRelationUpdate(event.Session, u.Source, stubBid, event.WeightBody{
			Kind: string(u.Kind), DocPaths: []string{u.DocPath},
		}))
		session.Record(stubBid, stubKeys...)
		logger.Warn("minted external stub for dangling reference", "doc_path", u.DocPath, "target", u.Target.Str)
	}

	base := graph.NewBeliefBase()
	for _, ev := range allEvents {
		base.Apply(ev)
	}

	combined := pathmap.New(network)
	combined.Add("/", network)
	for docPath, root := range docRoots {
		docPM := pathmap.BuildFromBase(base, network, root)
		prefix := documentPathPrefix(docPath)
		for p, bid := range docPM.All() {
			if p == "/" {
				combined.Add(prefix, bid)
				continue
			}
			combined.Add(prefix+p, bid)
		}
	}

	durable := promoteToDurable(allEvents)
	if err := c.Source.Commit(network, durable); err != nil {
		return nil, fmt.Errorf("compiler: commit: %w", err)
	}

	logger.Info("compile complete", "nodes", len(base.Graph().Nodes), "relations", len(base.Graph().Relations),
		"dangling_refs", len(stillDangling))

	return &Result{Base: base, PathMap: combined, Diagnostics: diagnostics, Unresolved: stillDangling, Events: durable}, nil
}

func (c *Compiler) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiling {
		return fmt.Errorf("compiler: compile already in progress")
	}
	c.compiling = true
	return nil
}

func (c *Compiler) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiling = false
}

// stubTitle picks the most readable candidate key to label an external
// stub node with: a Title key if the dangling reference carried one
// (typically the last, fuzzy-match fallback), else the primary candidate's
// raw string.
func stubTitle(keys []ids.NodeKey) string {
	for _, k := range keys {
		if k.Kind == ids.KeyTitle {
			return k.Str
		}
	}
	if len(keys) > 0 {
		return keys[0].Str
	}
	return ""
}

// documentRoot returns the bid of the single node in g with no incoming
// section edge within g — the document's own root node, minted first by
// resolveOrMint for every call to BuildDocument.
func documentRoot(g *graph.BeliefGraph) ids.BID {
	hasIncoming := make(map[ids.BID]bool, len(g.Relations))
	for ref := range g.Relations {
		if ref.Kind == graph.WeightSection {
			hasIncoming[ref.Sink] = true
		}
	}
	for bid, n := range g.Nodes {
		if n.Kinds.Has(graph.KindDocument) && !hasIncoming[bid] {
			return bid
		}
	}
	for bid := range g.Nodes {
		if !hasIncoming[bid] {
			return bid
		}
	}
	return ids.Nil
}

// documentPathPrefix turns "docs/a.md" into "/docs/a", the network-path
// prefix every path inside that document's own PathMap is joined onto.
func documentPathPrefix(docPath string) string {
	trimmed := strings.TrimSuffix(docPath, path.Ext(docPath))
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

func promoteToDurable(events []event.Event) []event.Event {
	out := make([]event.Event, len(events))
	for i, ev := range events {
		ev.Origin = event.Durable
		out[i] = ev
	}
	return out
}
