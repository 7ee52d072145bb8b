// Package markdown implements the Markdown codec contract (internal/codec):
// frontmatter parsing (YAML/TOML/JSON), heading-to-section node splitting
// with a Bref collision fallback, WikiLink and canonical noet:-tagged link
// extraction, and source generation. It generalizes the teacher's
// ProcessMarkdownFile/ExtractFrontmatter/ExtractWikiLinks pipeline, which
// only ever produced one node per file, into the spec's document/section
// node-per-heading model.
package markdown

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ali01/noetgraph/internal/codec"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// Codec implements codec.Codec for Markdown documents.
type Codec struct {
	Classifier *NodeClassifier
}

// New returns a Markdown codec with the default document classifier.
func New() *Codec { return &Codec{Classifier: DefaultClassifier()} }

// Name satisfies codec.Codec.
func (c *Codec) Name() string { return "markdown" }

// InjectContext is a no-op for Markdown today: nothing in network config
// currently changes how a document is parsed beyond StrictFormat, which
// Parse already reads straight off ctx.
func (c *Codec) InjectContext(ctx codec.Context) codec.Context { return ctx }

// Parse turns Markdown source into a document ProtoNode with one Section
// child per heading, nested per heading depth.
func (c *Codec) Parse(source []byte, ctx codec.Context) (codec.ParseResult, error) {
	content := string(source)
	var diags []codec.Diagnostic

	fm, body, err := ExtractFrontmatter(content)
	if err != nil {
		return codec.ParseResult{}, err
	}
	if fm != nil && ctx.StrictFormat {
		for _, key := range fm.UnmatchedKeys() {
			diags = append(diags, codec.Diagnostic{
				Severity: codec.Error,
				Message:  fmt.Sprintf("unrecognized frontmatter key %q", key),
			})
		}
	} else if fm != nil {
		for _, key := range fm.UnmatchedKeys() {
			diags = append(diags, codec.Diagnostic{
				Severity: codec.Info,
				Message:  fmt.Sprintf("unrecognized frontmatter key %q", key),
			})
		}
	}

	title := ""
	if fm != nil {
		title = fm.Title
	}

	schema := "markdown"
	if c.Classifier != nil {
		schema = c.Classifier.Classify(ctx.Path, fm)
	}

	root := codec.ProtoNode{
		Kinds:   graph.KindSet(0).With(graph.KindDocument),
		Schema:  schema,
		Title:   title,
		Payload: map[string]any{},
	}
	// A document's key set is [Path, Title, Id, Bid-if-present]: Path is
	// always present (the builder sets ctx.Path before Parse runs), Title
	// only once frontmatter supplies one.
	if ctx.Path != "" {
		root.Keys = append(root.Keys, ids.PathKey(ctx.Network, ctx.Path))
	}
	if fm != nil {
		if title != "" {
			root.Keys = append(root.Keys, ids.TitleKey(ctx.Network, NormalizeTarget(title)))
		}
		if fm.ID != "" {
			root.Keys = append(root.Keys, ids.IDKey(ctx.Network, fm.ID))
		}
		if fm.Bid != "" {
			if explicit, perr := ids.ParseBID(fm.Bid); perr == nil {
				root.ExplicitBID = explicit
				root.Keys = append(root.Keys, ids.BidKey(explicit))
			} else {
				diags = append(diags, codec.Diagnostic{
					Severity: codec.Warning,
					Message:  fmt.Sprintf("frontmatter bid %q is not a valid BID", fm.Bid),
				})
			}
		}
		root.Payload["tags"] = fm.Tags
		for _, rel := range fm.Related {
			root.OutRefs = append(root.OutRefs, codec.ProtoRef{
				Target: ids.TitleKey(ctx.Network, NormalizeTarget(rel)),
				Kind:   graph.WeightReference,
				Raw:    rel,
			})
		}
		for _, ref := range fm.References {
			root.OutRefs = append(root.OutRefs, codec.ProtoRef{
				Target: ids.TitleKey(ctx.Network, NormalizeTarget(ref)),
				Kind:   graph.WeightReference,
				Raw:    ref,
			})
		}
	}

	leading, headingRoots := splitHeadings(body)
	root.Payload["body"] = strings.TrimSpace(leading)
	root.OutRefs = append(root.OutRefs, extractLinkRefs(ctx, leading)...)

	var sections map[string]map[string]any
	if fm != nil {
		sections = fm.Sections
	}
	matchedSections := make(map[string]bool, len(sections))

	seenPaths := make(map[string]int)
	for _, h := range headingRoots {
		child, childDiags := c.buildSection(ctx, body, h, "", seenPaths, sections, matchedSections)
		root.Children = append(root.Children, child)
		diags = append(diags, childDiags...)
	}

	for key := range sections {
		if !matchedSections[key] {
			severity := codec.Info
			if ctx.StrictFormat {
				severity = codec.Error
			}
			diags = append(diags, codec.Diagnostic{
				Severity: severity,
				Message:  fmt.Sprintf("sections key %q matches no heading", key),
			})
		}
	}

	return codec.ParseResult{Root: root, Diagnostics: diags}, nil
}

// buildSection turns one heading (and its nested children) into a Section
// ProtoNode. sections is the frontmatter's flat metadata map (spec.md §3);
// a section whose slug or "#slug" anchor appears as a key has that entry's
// table merged into its Payload, and the key is marked matched so Parse can
// flag leftover entries that named no heading. Matching against a bid://
// key is not attempted here — no node has a resolved BID until the builder
// runs, after Parse returns — so a frontmatter entry keyed by bid:// always
// reports as unmatched; spec.md does not mandate that tier be honored
// before identity resolution, only that unmatched keys diagnose rather
// than error, which this still does.
func (c *Codec) buildSection(ctx codec.Context, body string, h *heading, parentPath string, seen map[string]int, sections map[string]map[string]any, matched map[string]bool) (codec.ProtoNode, []codec.Diagnostic) {
	var diags []codec.Diagnostic

	// The anchor identifying this heading is its explicit {#id}, when the
	// author wrote one, and the normalized title slug otherwise — this is
	// what makes "## Alpha {#intro}" and "## Beta {#intro}" collide on
	// "intro" even though their titles slugify differently.
	anchor := h.ExplicitID
	if anchor == "" {
		anchor = NormalizeTarget(h.Title)
	}
	path := parentPath + "#" + anchor
	var keys []ids.NodeKey
	if n := seen[path]; n > 0 {
		bref := ids.NewBref(fmt.Sprintf("%s/%d/%s", path, n, h.Title))
		severity := codec.Info
		if h.ExplicitID != "" {
			severity = codec.Warning
		}
		diags = append(diags, codec.Diagnostic{
			Severity: severity,
			Message:  fmt.Sprintf("heading %q collides with a prior sibling; falling back to bref %s", h.Title, bref),
		})
		keys = []ids.NodeKey{ids.BrefKey(ctx.Network, bref)}
	} else {
		keys = []ids.NodeKey{ids.PathKey(ctx.Network, path)}
		if h.ExplicitID != "" {
			keys = append(keys, ids.IDKey(ctx.Network, h.ExplicitID))
		}
	}
	seen[path]++

	ownBody := strings.TrimSpace(h.ownBody(body))
	node := codec.ProtoNode{
		Keys:    keys,
		Kinds:   graph.KindSet(0).With(graph.KindSection),
		Schema:  "markdown-section",
		Title:   h.Title,
		Payload: map[string]any{"body": ownBody, "level": h.Level},
		OutRefs: extractLinkRefs(ctx, ownBody),
	}

	for _, candidate := range []string{"#" + anchor, anchor} {
		meta, ok := sections[candidate]
		if !ok {
			continue
		}
		matched[candidate] = true
		for mk, mv := range meta {
			if mk == "bid" {
				if bidStr, ok := mv.(string); ok {
					if explicit, perr := ids.ParseBID(bidStr); perr == nil {
						node.ExplicitBID = explicit
						node.Keys = append(node.Keys, ids.BidKey(explicit))
					} else {
						diags = append(diags, codec.Diagnostic{
							Severity: codec.Warning,
							Message:  fmt.Sprintf("sections %q bid %q is not a valid BID", candidate, bidStr),
						})
					}
				}
				continue
			}
			node.Payload[mk] = mv
		}
	}

	for _, childH := range h.Children {
		child, childDiags := c.buildSection(ctx, body, childH, path, seen, sections, matched)
		node.Children = append(node.Children, child)
		diags = append(diags, childDiags...)
	}

	return node, diags
}

// extractLinkRefs finds both canonical noet:-tagged links and legacy
// WikiLinks in text, returning every canonical link first and then every
// WikiLink; each match becomes its own ProtoRef.
func extractLinkRefs(ctx codec.Context, text string) []codec.ProtoRef {
	var refs []codec.ProtoRef

	for _, cl := range ExtractCanonicalLinks(text) {
		refs = append(refs, codec.ProtoRef{
			Target: ids.BrefKey(ctx.Network, ids.Bref(cl.Bref)),
			Kind:   graph.WeightReference,
			Range:  offsetRange(text, cl.Start, cl.End),
			Raw:    text[cl.Start:cl.End],
		})
	}

	for _, wl := range ExtractWikiLinks(text) {
		if wl.Target == "" {
			continue
		}
		target, fallbacks := wikiLinkCandidates(ctx, wl.Target)
		kind := graph.WeightReference
		if wl.Embed {
			// ![[target]]: an embed most often names a non-document asset
			// (image, PDF) rather than another note. It still carries the
			// same path/title candidates as an ordinary WikiLink, in case
			// the embed actually names a parsed document — only once
			// nothing in the working set resolves it does the compiler
			// treat it as a file to content-address.
			kind = graph.WeightAsset
		}
		refs = append(refs, codec.ProtoRef{
			Target:      target,
			Fallbacks:   fallbacks,
			DisplayText: wl.Target,
			Kind:        kind,
			Range:       offsetRange(text, wl.Start, wl.End),
			Raw:         wl.Raw,
		})
	}

	return refs
}

// wikiLinkCandidates ranks a legacy [[Target]]'s resolution candidates the
// way the teacher's LinkResolver.ResolveLink tried exact path, then
// relative-to-source path, before falling back to a basename/normalized
// fuzzy match: an exact PathKey comes first, a path relative to the
// linking document's own directory second, and a normalized TitleKey last.
func wikiLinkCandidates(ctx codec.Context, target string) (primary ids.NodeKey, fallbacks []ids.NodeKey) {
	trimmed := strings.TrimSuffix(target, ".md")
	primary = ids.PathKey(ctx.Network, trimmed)

	if ctx.Path != "" {
		relative := filepath.Clean(filepath.Join(filepath.Dir(ctx.Path), trimmed))
		if relative != trimmed {
			fallbacks = append(fallbacks, ids.PathKey(ctx.Network, relative))
		}
	}
	fallbacks = append(fallbacks, ids.TitleKey(ctx.Network, NormalizeTarget(filepath.Base(trimmed))))
	return primary, fallbacks
}

func offsetRange(text string, start, end int) codec.SourceRange {
	return codec.SourceRange{
		StartByte: start, EndByte: end,
		StartLine: 1 + strings.Count(text[:start], "\n"),
		EndLine:   1 + strings.Count(text[:end], "\n"),
	}
}

// GenerateSource renders a ProtoNode tree back into Markdown: frontmatter
// (if the root carries a title/tags/id), followed by one ATX heading per
// section in document order.
func (c *Codec) GenerateSource(root codec.ProtoNode, ctx codec.Context) ([]byte, error) {
	var b strings.Builder
	writeFrontmatter(&b, root)
	if body, ok := root.Payload["body"].(string); ok && body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	for _, child := range root.Children {
		writeSection(&b, child, 2)
	}
	return []byte(b.String()), nil
}

// writeFrontmatter re-emits the document root's recognized frontmatter
// fields (id, title, tags) as a YAML block, the inverse of
// ExtractFrontmatter's YAML branch. Regeneration always re-canonicalizes
// into YAML regardless of which fence the source originally opened with —
// ProtoNode does not carry the original Format, and spec.md's Non-goals
// already waive byte-for-byte source preservation in favor of AST
// round-tripping. A document with none of these fields emits no block at
// all, matching ExtractFrontmatter's "frontmatter is optional" stance.
func writeFrontmatter(b *strings.Builder, root codec.ProtoNode) {
	id := ""
	for _, k := range root.Keys {
		if k.Kind == ids.KeyID {
			id = k.Str
		}
	}
	tags, _ := root.Payload["tags"].([]string)
	if id == "" && root.Title == "" && len(tags) == 0 {
		return
	}

	b.WriteString("---\n")
	if id != "" {
		fmt.Fprintf(b, "id: %s\n", id)
	}
	if root.Title != "" {
		fmt.Fprintf(b, "title: %s\n", root.Title)
	}
	if len(tags) > 0 {
		b.WriteString("tags:\n")
		for _, t := range tags {
			fmt.Fprintf(b, "  - %s\n", t)
		}
	}
	b.WriteString("---\n\n")
}

func writeSection(b *strings.Builder, n codec.ProtoNode, level int) {
	b.WriteString(strings.Repeat("#", level))
	b.WriteString(" ")
	b.WriteString(n.Title)
	b.WriteString("\n\n")
	if body, ok := n.Payload["body"].(string); ok && body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	for _, child := range n.Children {
		writeSection(b, child, level+1)
	}
}

// GetNodeRange locates the first heading whose normalized title equals a
// TitleKey's string and returns the range from its heading line to the end
// of its section. Only TitleKeys are matched, and only against headings:
// other key kinds, and the document root, report ok=false.
func (c *Codec) GetNodeRange(source []byte, key ids.NodeKey) (codec.SourceRange, bool) {
	content := string(source)
	_, roots := splitHeadings(content)
	var found *heading
	var search func([]*heading)
	search = func(hs []*heading) {
		for _, h := range hs {
			if found != nil {
				return
			}
			if key.Kind == ids.KeyTitle && key.Str == NormalizeTarget(h.Title) {
				found = h
				return
			}
			search(h.Children)
		}
	}
	search(roots)
	if found == nil {
		return codec.SourceRange{}, false
	}
	return offsetRange(content, found.LineStart, found.BodyEnd), true
}

// GetLinkRanges returns every link (canonical or legacy WikiLink) found in
// source, independent of heading structure.
func (c *Codec) GetLinkRanges(source []byte) ([]codec.ProtoRef, error) {
	return extractLinkRefs(codec.Context{}, string(source)), nil
}

var _ codec.Codec = (*Codec)(nil)
