// Package fswalk discovers source documents on disk for the compiler,
// walking a network root directory for files the configured codec can
// parse. Grounded on vault.Parser.collectMarkdownFiles's filepath.Walk
// traversal (hidden-directory skip, relative-path collection), generalized
// from a hardcoded ".md" suffix to an arbitrary extension set and from a
// single flat file list into compiler.Document values ready to compile.
package fswalk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ali01/noetgraph/internal/compiler"
)

// DefaultExtensions are the file suffixes collected when none are given
// explicitly.
var DefaultExtensions = []string{".md"}

// Collect walks root and returns compiler.Document for every file whose
// extension matches one of extensions (case-insensitive), skipping hidden
// directories and files (a leading "." in the name, matching Obsidian
// vaults' .git/.obsidian convention) and any root-relative path listed in
// exclude (callers pass the network root's manifest names there; Collect
// itself does not know them).
func Collect(root string, extensions []string, exclude map[string]bool) ([]compiler.Document, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	lower := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		lower[strings.ToLower(ext)] = true
	}

	var docs []compiler.Document
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !lower[strings.ToLower(filepath.Ext(info.Name()))] {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if exclude[relPath] {
			return nil
		}

		source, err := os.ReadFile(path) // #nosec G304 -- path is derived from a Walk over a trusted root
		if err != nil {
			return fmt.Errorf("fswalk: read %s: %w", relPath, err)
		}
		docs = append(docs, compiler.Document{Path: relPath, Source: source})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fswalk: walk %s: %w", root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// AssetLoader loads a referenced file's raw bytes off disk relative to the
// root a Collect call walked, satisfying compiler.AssetLoader. A target
// outside root (e.g. a WikiLink embed naming a nonexistent or absolute
// path) returns ok=false rather than erroring — the compiler falls back to
// an External stub exactly as for any other dangling reference.
type AssetLoader struct {
	Root string
}

// Load resolves target relative to docPath's own directory under l.Root —
// the same "document-relative path" convention wikiLinkCandidates uses for
// ordinary WikiLinks — and reads its bytes.
func (l AssetLoader) Load(docPath, target string) ([]byte, bool) {
	if target == "" {
		return nil, false
	}
	rel := filepath.Clean(filepath.Join(filepath.Dir(docPath), target))
	full := filepath.Join(l.Root, rel)
	if !strings.HasPrefix(filepath.Clean(full), filepath.Clean(l.Root)+string(filepath.Separator)) {
		return nil, false // target escapes root via "../../.."
	}
	content, err := os.ReadFile(full) // #nosec G304 -- full is joined under a trusted root and bounds-checked above
	if err != nil {
		return nil, false
	}
	return content, true
}
