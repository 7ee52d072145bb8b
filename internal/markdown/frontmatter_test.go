package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrontmatterYAML(t *testing.T) {
	content := "---\nid: note-1\ntitle: Hello\ntags:\n  - a\n  - b\n---\nBody text.\n"
	fm, body, err := ExtractFrontmatter(content)
	require.NoError(t, err)
	require.NotNil(t, fm)
	assert.Equal(t, FormatYAML, fm.Format)
	assert.Equal(t, "note-1", fm.ID)
	assert.Equal(t, []string{"a", "b"}, fm.Tags)
	assert.Equal(t, "Body text.\n", body)
}

func TestExtractFrontmatterTOML(t *testing.T) {
	content := "+++\nid = \"note-2\"\ntitle = \"Hi\"\n+++\nBody.\n"
	fm, _, err := ExtractFrontmatter(content)
	require.NoError(t, err)
	require.NotNil(t, fm)
	assert.Equal(t, FormatTOML, fm.Format)
	assert.Equal(t, "note-2", fm.ID)
}

func TestExtractFrontmatterJSON(t *testing.T) {
	content := "{\n\"id\": \"note-3\",\n\"title\": \"Hey\"\n}\nBody.\n"
	fm, _, err := ExtractFrontmatter(content)
	require.NoError(t, err)
	require.NotNil(t, fm)
	assert.Equal(t, FormatJSON, fm.Format)
	assert.Equal(t, "note-3", fm.ID)
}

func TestExtractFrontmatterNone(t *testing.T) {
	fm, body, err := ExtractFrontmatter("Just a plain document.\n")
	require.NoError(t, err)
	assert.Nil(t, fm)
	assert.Equal(t, "Just a plain document.\n", body)
}

func TestUnmatchedKeys(t *testing.T) {
	content := "---\nid: note-1\nowner: alice\n---\nBody\n"
	fm, _, err := ExtractFrontmatter(content)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, fm.UnmatchedKeys())
}

func TestExtractFrontmatterSectionsMap(t *testing.T) {
	content := "---\nid: note-1\nsections:\n  \"#background\":\n    status: draft\n---\nBody\n"
	fm, _, err := ExtractFrontmatter(content)
	require.NoError(t, err)
	require.NotNil(t, fm)
	require.Contains(t, fm.Sections, "#background")
	assert.Equal(t, "draft", fm.Sections["#background"]["status"])
	assert.Empty(t, fm.UnmatchedKeys(), "sections is a recognized key, not flagged as unmatched")
}
