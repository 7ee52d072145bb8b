package markdown

import (
	"path/filepath"
	"sort"
	"strings"
)

// Classification rule priorities. Lower runs first; the first matching
// rule wins. Generalizes the teacher's PriorityTag/PriorityFilename/
// PriorityPath ordering from a fixed vault-note taxonomy to an arbitrary,
// caller-supplied Schema string.
const (
	PriorityTag      = 1
	PriorityFilename = 2
	PriorityPath     = 3
)

// ClassificationRule assigns Schema to a document node when Match returns
// true. Match sees the document's source path and parsed frontmatter (which
// may be nil for a document with no frontmatter block).
type ClassificationRule struct {
	Name     string
	Priority int
	Match    func(path string, fm *Frontmatter) bool
	Schema   string
}

// NodeClassifier derives a document node's Schema from its path and
// frontmatter, the way the teacher's NodeClassifier derived a vault note's
// type from tag/filename/path rules — generalized here to run over
// BeliefNode.Payload-bearing documents of any schema, not a fixed vault
// taxonomy, and to fall back to a caller-chosen default instead of an
// empty string.
type NodeClassifier struct {
	rules         []ClassificationRule
	defaultSchema string
}

// NewNodeClassifier sorts rules by Priority (ascending) and returns a
// classifier that falls back to defaultSchema when nothing matches.
func NewNodeClassifier(rules []ClassificationRule, defaultSchema string) *NodeClassifier {
	sorted := make([]ClassificationRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &NodeClassifier{rules: sorted, defaultSchema: defaultSchema}
}

// DefaultClassifier ships with the three rule kinds the teacher used for
// vault notes, adapted to the generic "markdown" schema: an "index" tag, a
// "~" filename prefix marking a template/scratch document, and membership
// in a directory named "archive".
func DefaultClassifier() *NodeClassifier {
	return NewNodeClassifier([]ClassificationRule{
		{Name: "index-tag", Priority: PriorityTag, Schema: "index", Match: func(_ string, fm *Frontmatter) bool {
			return fm.HasTag("index")
		}},
		{Name: "template-filename", Priority: PriorityFilename, Schema: "template", Match: func(path string, _ *Frontmatter) bool {
			return strings.HasPrefix(filepath.Base(path), "~")
		}},
		{Name: "archive-path", Priority: PriorityPath, Schema: "archive", Match: func(path string, _ *Frontmatter) bool {
			return inDirectory(path, "archive")
		}},
	}, "markdown")
}

// Classify returns the Schema of the first matching rule, or the
// classifier's default when none match. Rules run even when fm is nil.
func (nc *NodeClassifier) Classify(path string, fm *Frontmatter) string {
	for _, rule := range nc.rules {
		if rule.Match(path, fm) {
			return rule.Schema
		}
	}
	return nc.defaultSchema
}

// inDirectory reports whether path has dirName as one of its path
// components, case-insensitively.
func inDirectory(path, dirName string) bool {
	if dirName == "" {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.EqualFold(part, dirName) {
			return true
		}
	}
	return false
}
