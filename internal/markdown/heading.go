package markdown

import (
	"regexp"
	"strings"
)

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)[ \t]*$`)

// headingIDRegex strips a trailing explicit-id marker off a heading's
// captured title text, e.g. "Alpha {#intro}" -> title "Alpha", id "intro".
// §4.3's heading->node rule: "an explicit {#anchor} sets the semantic id."
var headingIDRegex = regexp.MustCompile(`\s*\{#([A-Za-z0-9_-]+)\}\s*$`)

// heading is one ATX heading found in a document body, with the byte range
// of the content it owns (from just after its own line to the start of the
// next heading at the same or a shallower level).
type heading struct {
	Level      int
	Title      string
	ExplicitID string // from a trailing "{#id}" marker on the heading line, if present
	LineStart  int // byte offset of the '#'
	BodyStart  int // byte offset where this heading's body text begins
	BodyEnd    int // byte offset where this heading's body text ends
	Children   []*heading
}

// splitHeadings parses body into a forest of heading nodes, stacking each
// heading under the nearest preceding heading of a shallower level — the
// same parent/child rule a Markdown renderer's table-of-contents uses.
// Content before the first heading is returned separately as the
// document's own leading body text.
func splitHeadings(body string) (leading string, roots []*heading) {
	matches := headingRegex.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body, nil
	}

	leading = body[:matches[0][0]]

	flat := make([]*heading, 0, len(matches))
	for i, m := range matches {
		level := len(body[m[2]:m[3]])
		title := strings.TrimSpace(body[m[4]:m[5]])
		explicitID := ""
		if idm := headingIDRegex.FindStringSubmatchIndex(title); idm != nil {
			explicitID = title[idm[2]:idm[3]]
			title = strings.TrimSpace(title[:idm[0]])
		}
		bodyStart := m[1]
		bodyEnd := len(body)
		for _, next := range matches[i+1:] {
			if next[3]-next[2] <= level {
				bodyEnd = next[0]
				break
			}
		}
		flat = append(flat, &heading{
			Level: level, Title: title, ExplicitID: explicitID,
			LineStart: m[0], BodyStart: bodyStart, BodyEnd: bodyEnd,
		})
	}

	var stack []*heading
	for _, h := range flat {
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, h)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, h)
		}
		stack = append(stack, h)
	}
	return leading, roots
}

// ownBody returns the text belonging directly to h, excluding any nested
// child headings' ranges.
func (h *heading) ownBody(body string) string {
	end := h.BodyEnd
	if len(h.Children) > 0 {
		end = h.Children[0].LineStart
	}
	return body[h.BodyStart:end]
}
