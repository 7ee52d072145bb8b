package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// WikiLink is a parsed [[Target]]-form link, kept for the legacy vault
// syntax alongside canonical noet: Markdown links.
type WikiLink struct {
	Raw         string
	Target      string
	DisplayText string
	Section     string
	Embed       bool
	Start, End  int
}

var (
	wikiLinkRegex = regexp.MustCompile(`(!?)\[\[(.+?)\]\]`)
	linkPartsRegex = regexp.MustCompile(`^([^#|]*)(#[^|]+)?(\|(.+))?$`)

	// canonicalLinkRegex matches a generated Markdown link carrying the
	// noet: tooltip namespace, e.g. [Title](target.md "noet:bref:abc123
	// noet:auto-title:true").
	canonicalLinkRegex = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)(?:\s+"([^"]*)")?\)`)

	noetBrefRegex      = regexp.MustCompile(`noet:bref:(\S+)`)
	noetAutoTitleRegex = regexp.MustCompile(`noet:auto-title:(true|false)`)
	// noetLegacyBrefRegex recognizes the pre-"bref:"-subkey tooltip form,
	// bare "noet:<bref>" with no "bref:" subkey, accepted on read for
	// compatibility with links rendered by an older codec version.
	noetLegacyBrefRegex = regexp.MustCompile(`noet:(\S+)`)
)

// ExtractWikiLinks finds every legacy [[...]] link in content.
func ExtractWikiLinks(content string) []WikiLink {
	matches := wikiLinkRegex.FindAllStringSubmatchIndex(content, -1)
	links := make([]WikiLink, 0, len(matches))
	for _, m := range matches {
		if len(m) < 6 {
			continue
		}
		raw := content[m[0]:m[1]]
		embed := m[2] != m[3]
		inner := content[m[4]:m[5]]
		links = append(links, parseWikiLink(raw, inner, embed, m[0], m[1]))
	}
	return links
}

func parseWikiLink(raw, inner string, embed bool, start, end int) WikiLink {
	link := WikiLink{Raw: raw, Embed: embed, Start: start, End: end}

	inner = strings.TrimSpace(inner)
	if inner == "" || inner == "|" {
		return link
	}
	if strings.HasPrefix(inner, "#") {
		link.Section = strings.TrimPrefix(inner, "#")
		link.DisplayText = inner
		return link
	}

	parts := linkPartsRegex.FindStringSubmatch(inner)
	if len(parts) > 1 {
		link.Target = strings.TrimSpace(parts[1])
		if len(parts) > 2 && parts[2] != "" {
			link.Section = strings.TrimPrefix(parts[2], "#")
		}
		if len(parts) > 4 && parts[4] != "" {
			link.DisplayText = strings.TrimSpace(parts[4])
		}
	} else {
		link.Target = inner
	}

	if link.DisplayText == "" {
		if link.Section != "" {
			link.DisplayText = link.Target + "#" + link.Section
		} else {
			link.DisplayText = link.Target
		}
	}
	return link
}

// NormalizeTarget lowercases and trims a link target for fuzzy matching,
// mirroring how the builder's path lookup tolerates case drift between a
// link and the file it names.
func NormalizeTarget(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}

// CanonicalLink is a resolved, codec-generated link: a rendered Markdown
// link whose tooltip carries the noet: namespace so a re-parse can recover
// the exact bref a human-edited title might otherwise have drifted from.
type CanonicalLink struct {
	Title      string
	Bref       string
	AutoTitle  bool
	TargetPath string
}

// Render produces the canonical Markdown form of a resolved link:
//
//	[Title](target.md "noet:bref:<bref> noet:auto-title:<bool>")
func (c CanonicalLink) Render() string {
	return fmt.Sprintf("[%s](%s \"noet:bref:%s noet:auto-title:%t\")", c.Title, c.TargetPath, c.Bref, c.AutoTitle)
}

// ParsedCanonicalLink is a canonical link recovered from source text.
type ParsedCanonicalLink struct {
	CanonicalLink
	Start, End int
}

// ExtractCanonicalLinks finds every noet:-tagged Markdown link in content.
// Plain Markdown links (no noet: tooltip) are not canonical links and are
// skipped; extractLinkRefs in codec.go does not report them either, so a
// plain [text](path.md) link produces no ProtoRef.
func ExtractCanonicalLinks(content string) []ParsedCanonicalLink {
	matches := canonicalLinkRegex.FindAllStringSubmatchIndex(content, -1)
	var out []ParsedCanonicalLink
	for _, m := range matches {
		if len(m) < 8 {
			continue
		}
		title := content[m[2]:m[3]]
		target := content[m[4]:m[5]]
		tooltip := ""
		if m[6] != -1 {
			tooltip = content[m[6]:m[7]]
		}
		bref := ""
		if brefMatch := noetBrefRegex.FindStringSubmatch(tooltip); brefMatch != nil {
			bref = brefMatch[1]
		} else if legacy := noetLegacyBrefRegex.FindStringSubmatch(tooltip); legacy != nil && !strings.HasPrefix(legacy[1], "auto-title:") {
			bref = legacy[1]
		}
		if bref == "" {
			continue
		}
		autoTitle := false
		if at := noetAutoTitleRegex.FindStringSubmatch(tooltip); at != nil {
			autoTitle = at[1] == "true"
		}
		out = append(out, ParsedCanonicalLink{
			CanonicalLink: CanonicalLink{
				Title: title, Bref: bref, AutoTitle: autoTitle, TargetPath: target,
			},
			Start: m[0], End: m[1],
		})
	}
	return out
}
