// Package codec declares the contract every source format (Markdown, JSON,
// TOML network roots, …) must satisfy so the graph builder can stay
// format-agnostic. It generalizes the teacher's concrete
// ProcessMarkdownFile/ExtractFrontmatter/ExtractWikiLinks pipeline into an
// explicit interface other formats can implement the same way.
package codec

import (
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// SourceRange locates a span of a source document in both byte and
// line/column terms, so a caller can report a diagnostic or render an
// editor jump-to-source link.
type SourceRange struct {
	StartByte, EndByte int
	StartLine, EndLine int
}

// Diagnostic is a parse-level finding that does not abort parsing (spec.md
// §7: "parse-level errors are collected per document", not thrown).
type Diagnostic struct {
	Severity Severity
	Message  string
	Range    SourceRange
}

// ProtoRef is an unresolved outgoing reference a ProtoNode makes — a
// WikiLink, Markdown link, or frontmatter relation — that the graph builder
// must resolve against the three-tier cache lookup.
//
// Target is the primary candidate key. Fallbacks, when present, are tried
// in order if Target does not resolve — e.g. a legacy WikiLink tries an
// exact path match before falling back to a normalized title match, the
// way the teacher's LinkResolver tried exact, then relative, then
// basename/fuzzy path matches in sequence. DisplayText, when set, is the
// link's original, unnormalized target text — used to label an External
// stub node if the reference never resolves, since every candidate key's
// own Str is normalized for matching and would otherwise surface to users
// in lowercased, slug form.
type ProtoRef struct {
	Target      ids.NodeKey
	Fallbacks   []ids.NodeKey
	DisplayText string
	Kind        graph.WeightKind
	Range       SourceRange
	Raw         string
}

// ProtoNode is a codec's speculative rendering of one node before the
// builder has assigned or confirmed its BID. Keys carries every identity
// dimension the codec could derive (spec.md §4.4.1 excludes Title from a
// section's key set; a document-level ProtoNode may include it).
type ProtoNode struct {
	Keys     []ids.NodeKey
	Kinds    graph.KindSet
	Schema   string
	Title    string
	Payload  map[string]any
	Children []ProtoNode
	OutRefs  []ProtoRef
	Range    SourceRange

	// ExplicitBID is the BID the source document itself asserts (a
	// frontmatter "bid" key), distinct from any BID a cache lookup might
	// already have on file for this node's Path. Nil when the document
	// doesn't assert one. spec.md §4.4.1 step 5: a Path-hit against a
	// *different* BID than this one is a rename, not a merge.
	ExplicitBID ids.BID
}

// ParseResult is what Codec.Parse returns: a root ProtoNode (typically the
// document node) plus any diagnostics collected along the way.
type ParseResult struct {
	Root        ProtoNode
	Diagnostics []Diagnostic
}

// Context carries the network-scoped configuration a codec needs in order
// to parse or generate consistently — the owning network's BID (for
// namespacing minted BIDs), and format options like strict_format.
type Context struct {
	Network      ids.BID
	StrictFormat bool
	Path         string
	Options      map[string]any
}

// Codec is the contract every source format implements. A single format
// (e.g. Markdown) is free to offer more than one Codec if it supports more
// than one frontmatter flavor.
type Codec interface {
	// Name identifies the codec, e.g. "markdown", "json-networkroot".
	Name() string

	// Parse turns raw source bytes into a ProtoNode tree plus diagnostics.
	Parse(source []byte, ctx Context) (ParseResult, error)

	// InjectContext folds network-level configuration into ctx before
	// Parse or GenerateSource is called, e.g. resolving a relative
	// sections-schema reference named in frontmatter.
	InjectContext(ctx Context) Context

	// GenerateSource serializes a ProtoNode tree back to source bytes,
	// the inverse of Parse. Used when the compiler needs to write back a
	// canonicalized form (e.g. rewriting a WikiLink's noet: tooltip after
	// a rename).
	GenerateSource(root ProtoNode, ctx Context) ([]byte, error)

	// GetNodeRange locates where a node (identified by any of its keys)
	// occurs in source, for diagnostics and editor integration.
	GetNodeRange(source []byte, key ids.NodeKey) (SourceRange, bool)

	// GetLinkRanges returns the byte ranges of every outgoing reference in
	// source, independent of whether Parse has run — used by editor
	// tooling to underline links without a full parse.
	GetLinkRanges(source []byte) ([]ProtoRef, error)
}
