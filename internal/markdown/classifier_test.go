package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifierClassify(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		fm     *Frontmatter
		expect string
	}{
		{
			name:   "index tag wins regardless of path",
			path:   "notes/plain.md",
			fm:     &Frontmatter{Tags: []string{"index"}},
			expect: "index",
		},
		{
			name:   "template filename prefix",
			path:   "notes/~scratch.md",
			fm:     nil,
			expect: "template",
		},
		{
			name:   "archive directory",
			path:   "vault/archive/old-note.md",
			fm:     nil,
			expect: "archive",
		},
		{
			name:   "tag rule outranks filename rule",
			path:   "~index.md",
			fm:     &Frontmatter{Tags: []string{"index"}},
			expect: "index",
		},
		{
			name:   "no rule matches falls back to default",
			path:   "notes/plain.md",
			fm:     nil,
			expect: "markdown",
		},
	}

	classifier := DefaultClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, classifier.Classify(tt.path, tt.fm))
		})
	}
}

func TestNodeClassifierSortsRulesByPriority(t *testing.T) {
	classifier := NewNodeClassifier([]ClassificationRule{
		{Name: "low-priority-always-matches", Priority: PriorityPath, Schema: "path-match", Match: func(string, *Frontmatter) bool { return true }},
		{Name: "high-priority-always-matches", Priority: PriorityTag, Schema: "tag-match", Match: func(string, *Frontmatter) bool { return true }},
	}, "default")

	assert.Equal(t, "tag-match", classifier.Classify("anything.md", nil), "the lower-numbered priority rule must be evaluated first")
}

func TestNodeClassifierFallsBackToDefaultWhenRulesEmpty(t *testing.T) {
	classifier := NewNodeClassifier(nil, "fallback")
	assert.Equal(t, "fallback", classifier.Classify("whatever.md", nil))
}
