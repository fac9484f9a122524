package utils

import (
	"strings"
	"testing"
)

func TestIsMarkdownFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"README.md", true},
		{"notes.markdown", true},
		{"doc.MD", true},
		{"main.go", false},
		{"archive.tar.gz", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsMarkdownFile(tt.path); got != tt.want {
			t.Errorf("IsMarkdownFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRemoveFrontmatter(t *testing.T) {
	in := "---\ntitle: Hello\n---\n# Heading\n\nBody text.\n"
	got := string(RemoveFrontmatter([]byte(in)))
	if !strings.HasPrefix(got, "# Heading") {
		t.Errorf("frontmatter not stripped: %q", got)
	}
}

func TestRemoveFrontmatterAbsent(t *testing.T) {
	in := "# Heading\n\nBody text.\n"
	if got := string(RemoveFrontmatter([]byte(in))); got != in {
		t.Errorf("content without frontmatter modified: %q", got)
	}
}

func TestRemoveFrontmatterUnclosed(t *testing.T) {
	in := "---\ntitle: Hello\n# no closing delimiter\n"
	if got := string(RemoveFrontmatter([]byte(in))); got != in {
		t.Errorf("unclosed frontmatter should be left alone: %q", got)
	}
}

func TestDocumentKey(t *testing.T) {
	if got := DocumentKey("-"); got != "stdin" {
		t.Errorf("DocumentKey(-) = %q", got)
	}
	if got := DocumentKey(""); got != "stdin" {
		t.Errorf("DocumentKey(empty) = %q", got)
	}
	url := "https://example.com/post.md"
	if got := DocumentKey(url); got != url {
		t.Errorf("DocumentKey(url) = %q", got)
	}
}
