// Package utils has small helpers for paths and markdown sources.
package utils

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

var markdownExtensions = map[string]bool{
	".md":        true,
	".mdown":     true,
	".mkdn":      true,
	".mkd":       true,
	".markdown":  true,
	".mdtxt":     true,
	".mdtext":    true,
	".rmd":       true,
	".livemd":    true,
	".qmd":       true,
}

// ExpandPath expands a leading tilde and environment-free relative paths to
// an absolute path. On failure the input is returned unchanged.
func ExpandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return expanded
	}
	return abs
}

// IsMarkdownFile reports whether the path looks like a markdown document.
// Anything without a recognized extension is treated as plain text.
func IsMarkdownFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return markdownExtensions[ext]
}

// RemoveFrontmatter strips a leading YAML frontmatter block, if present.
func RemoveFrontmatter(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return content
	}
	rest := content[bytes.IndexByte(content, '\n')+1:]
	for _, delim := range [][]byte{[]byte("\n---\n"), []byte("\n---\r\n")} {
		if idx := bytes.Index(rest, delim); idx >= 0 {
			return rest[idx+len(delim):]
		}
	}
	// Frontmatter never closed; leave the document alone.
	return content
}

// DocumentKey normalizes a source identifier for bookmark storage. Local
// paths become absolute so the same file opened from different directories
// shares one bookmark.
func DocumentKey(source string) string {
	if source == "" || source == "-" {
		return "stdin"
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return source
	}
	return ExpandPath(source)
}
