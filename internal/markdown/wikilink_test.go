package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWikiLinksBasic(t *testing.T) {
	content := "See [[Target Note]] and [[Other|Alias]] and ![[embed.png]]."
	links := ExtractWikiLinks(content)
	require.Len(t, links, 3)

	assert.Equal(t, "Target Note", links[0].Target)
	assert.False(t, links[0].Embed)

	assert.Equal(t, "Other", links[1].Target)
	assert.Equal(t, "Alias", links[1].DisplayText)

	assert.Equal(t, "embed.png", links[2].Target)
	assert.True(t, links[2].Embed)
}

func TestParseWikiLinkSectionOnly(t *testing.T) {
	links := ExtractWikiLinks("jump to [[#Intro]]")
	require.Len(t, links, 1)
	assert.Equal(t, "", links[0].Target)
	assert.Equal(t, "Intro", links[0].Section)
}

func TestCanonicalLinkRoundTrip(t *testing.T) {
	link := CanonicalLink{Title: "Intro", Bref: "abc123def0", AutoTitle: true, TargetPath: "intro.md"}
	rendered := link.Render()

	parsed := ExtractCanonicalLinks(rendered)
	require.Len(t, parsed, 1)
	assert.Equal(t, "abc123def0", parsed[0].Bref)
	assert.True(t, parsed[0].AutoTitle)
	assert.Equal(t, "intro.md", parsed[0].TargetPath)
}

func TestExtractCanonicalLinksAcceptsLegacyBareBref(t *testing.T) {
	content := `[Intro](intro.md "noet:abc123def0")`
	parsed := ExtractCanonicalLinks(content)
	require.Len(t, parsed, 1)
	assert.Equal(t, "abc123def0", parsed[0].Bref)
	assert.False(t, parsed[0].AutoTitle)
	assert.Equal(t, "intro.md", parsed[0].TargetPath)
}

func TestNormalizeTarget(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeTarget("  Hello World  "))
}
