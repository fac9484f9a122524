// Package paragraph builds the speakable paragraph sequence for a document.
package paragraph

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/kittycrypto-gg/readaloud/speak"
)

// Options control which document blocks become paragraphs.
type Options struct {
	SkipCodeBlocks bool // Drop fenced/indented code blocks
	SkipHeadings   bool // Drop headings
	MinLength      int  // Minimum speakable length in runes
}

// DefaultOptions returns the extraction defaults.
func DefaultOptions() Options {
	return Options{
		SkipCodeBlocks: true,
		SkipHeadings:   false,
		MinLength:      2,
	}
}

// Inline markup cleanup, applied to the raw text of each block.
var (
	imageRegex      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRegex       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	strongRegex     = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	emphasisRegex   = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
	inlineCodeRegex = regexp.MustCompile("`([^`]+)`")
	htmlTagRegex    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Extract parses markdown and returns its speakable paragraph sequence, in
// document order. Headings, list items and blockquote bodies count as
// paragraphs; code blocks are dropped by default.
func Extract(source []byte, opts Options) []speak.Paragraph {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(source))

	var paras []speak.Paragraph
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			if opts.SkipHeadings {
				return ast.WalkSkipChildren, nil
			}
			paras = appendBlock(paras, blockText(n, source), opts)
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindTextBlock:
			paras = appendBlock(paras, blockText(n, source), opts)
			return ast.WalkSkipChildren, nil
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			if !opts.SkipCodeBlocks && n.Kind() != ast.KindHTMLBlock {
				paras = appendBlock(paras, blockText(n, source), opts)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return paras
}

// ExtractText splits plain text on blank lines, for documents that are not
// markdown.
func ExtractText(source []byte) []speak.Paragraph {
	var paras []speak.Paragraph
	opts := DefaultOptions()
	for _, block := range regexp.MustCompile(`\n\s*\n`).Split(string(source), -1) {
		paras = appendBlock(paras, cleanInline(block), opts)
	}
	return paras
}

// appendBlock adds a paragraph for the cleaned block text, assigning the
// next index and a stable id.
func appendBlock(paras []speak.Paragraph, text string, opts Options) []speak.Paragraph {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < opts.MinLength {
		return paras
	}
	index := len(paras)
	return append(paras, speak.Paragraph{
		Index: index,
		ID:    paragraphID(index, text),
		Text:  text,
	})
}

// blockText joins the block's source lines and strips inline markup.
func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
		sb.WriteByte(' ')
	}
	return cleanInline(sb.String())
}

// cleanInline reduces inline markdown and HTML to the text a voice should
// speak.
func cleanInline(text string) string {
	text = imageRegex.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = strongRegex.ReplaceAllString(text, "$1$2")
	text = emphasisRegex.ReplaceAllString(text, "$1$2")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = htmlTagRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// paragraphID derives a stable identifier from the paragraph's position and
// content, so bookmarks survive a reload of the same document.
func paragraphID(index int, text string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("p%04d-%08x", index, h.Sum32())
}

// Provider implements speak.ParagraphProvider over an extracted sequence.
type Provider struct {
	paras []speak.Paragraph
	hint  func() *speak.IndexHint
}

// NewProvider wraps a paragraph sequence. hint may be nil; it is consulted
// each time a session starts, so a bookmark persisted by a previous run is
// picked up.
func NewProvider(paras []speak.Paragraph, hint func() *speak.IndexHint) *Provider {
	return &Provider{paras: paras, hint: hint}
}

// Paragraphs implements speak.ParagraphProvider.
func (p *Provider) Paragraphs() []speak.Paragraph {
	return p.paras
}

// InitialIndexHint implements speak.ParagraphProvider.
func (p *Provider) InitialIndexHint() *speak.IndexHint {
	if p.hint == nil {
		return nil
	}
	return p.hint()
}
