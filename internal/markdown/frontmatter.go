package markdown

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format names the frontmatter serialization a document opens with.
type Format int

const (
	// FormatNone means no frontmatter block was found.
	FormatNone Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

var (
	yamlFence = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n?`)
	tomlFence = regexp.MustCompile(`(?s)^\+\+\+\s*\n(.*?)\n\+\+\+\s*\n?`)
	jsonFence = regexp.MustCompile(`(?s)^\{\s*\n(.*?)\n\}\s*\n?`)
)

// Frontmatter is the parsed header block of a document, in whichever
// format it was written. Raw preserves every field, including ones neither
// Related/References/Tags names — the Markdown codec surfaces unmatched
// keys as an Info Diagnostic, escalated to Error when the network's config
// sets strict_format.
type Frontmatter struct {
	Format Format
	// Bid is the document's explicit BID assertion, e.g. a file copied or
	// restored from elsewhere that must keep its prior identity rather than
	// mint a fresh one. Empty unless the frontmatter carries a "bid" key.
	Bid        string
	ID         string
	Title      string
	Tags       []string
	Related    []string
	References []string
	// Sections is the flat NodeKey-shaped-string -> metadata map spec.md
	// §3 describes ("bid://…", "#anchor", or slug keys, each merged into
	// the heading node it matches). A key that matches nothing produces an
	// informational diagnostic rather than an error.
	Sections map[string]map[string]any
	Raw      map[string]any
}

// ExtractFrontmatter detects and parses a leading frontmatter block,
// returning the remaining body. A document with no recognizable fence
// returns a nil Frontmatter and the content unchanged — frontmatter is
// optional, unlike the teacher's vault format where an id was mandatory.
func ExtractFrontmatter(content string) (*Frontmatter, string, error) {
	if m := yamlFence.FindStringSubmatch(content); m != nil {
		return parseFrontmatter(FormatYAML, m[1], strings.TrimPrefix(content, m[0]))
	}
	if m := tomlFence.FindStringSubmatch(content); m != nil {
		return parseFrontmatter(FormatTOML, m[1], strings.TrimPrefix(content, m[0]))
	}
	if m := jsonFence.FindStringSubmatch(content); m != nil {
		return parseFrontmatter(FormatJSON, "{\n"+m[1]+"\n}", strings.TrimPrefix(content, m[0]))
	}
	return nil, content, nil
}

func parseFrontmatter(format Format, raw, body string) (*Frontmatter, string, error) {
	var data map[string]any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal([]byte(raw), &data)
	case FormatTOML:
		err = toml.Unmarshal([]byte(raw), &data)
	case FormatJSON:
		err = json.Unmarshal([]byte(raw), &data)
	}
	if err != nil {
		return nil, "", fmt.Errorf("markdown: parse %v frontmatter: %w", format, err)
	}
	if data == nil {
		data = make(map[string]any)
	}

	fm := &Frontmatter{Format: format, Raw: data}
	fm.Bid, _ = stringField(data, "bid")
	fm.ID, _ = stringField(data, "id")
	fm.Title, _ = stringField(data, "title")
	fm.Tags = stringSliceField(data, "tags")
	fm.Related = stringSliceField(data, "related")
	fm.References = stringSliceField(data, "references")
	fm.Sections = sectionsMapField(data, "sections")

	return fm, body, nil
}

// sectionsMapField decodes the flat sections map: each value must itself be
// a table (object), per spec.md §3's "value is a metadata table" — a
// non-table value is skipped rather than erroring, since a malformed entry
// here is no different from any other unrecognized frontmatter shape.
func sectionsMapField(raw map[string]any, key string) map[string]map[string]any {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	outer, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]any, len(outer))
	for k, entry := range outer {
		switch meta := entry.(type) {
		case map[string]any:
			out[k] = meta
		case map[any]any: // yaml.v3 decodes untyped nested maps this way
			converted := make(map[string]any, len(meta))
			for mk, mv := range meta {
				if ks, ok := mk.(string); ok {
					converted[ks] = mv
				}
			}
			out[k] = converted
		}
	}
	return out
}

func stringField(raw map[string]any, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringSliceField(raw map[string]any, key string) []string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// HasTag reports whether f carries tag, nil-safe.
func (f *Frontmatter) HasTag(tag string) bool {
	if f == nil {
		return false
	}
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UnmatchedKeys returns the frontmatter keys that ExtractFrontmatter did
// not map to a known field, for strict_format enforcement.
func (f *Frontmatter) UnmatchedKeys() []string {
	if f == nil {
		return nil
	}
	known := map[string]struct{}{"bid": {}, "id": {}, "title": {}, "tags": {}, "related": {}, "references": {}, "sections": {}}
	var out []string
	for k := range f.Raw {
		if _, ok := known[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
