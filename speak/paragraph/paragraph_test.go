package paragraph

import (
	"strings"
	"testing"

	"github.com/kittycrypto-gg/readaloud/speak"
)

const sampleDoc = `# A Title

First paragraph with **bold** and a [link](https://example.com).

Second paragraph spans
two source lines.

` + "```go\nfmt.Println(\"code\")\n```" + `

Last paragraph.
`

func texts(paras []speak.Paragraph) []string {
	out := make([]string, len(paras))
	for i, p := range paras {
		out[i] = p.Text
	}
	return out
}

func TestExtractDefaults(t *testing.T) {
	paras := Extract([]byte(sampleDoc), DefaultOptions())

	want := []string{
		"A Title",
		"First paragraph with bold and a link.",
		"Second paragraph spans two source lines.",
		"Last paragraph.",
	}
	got := texts(paras)
	if len(got) != len(want) {
		t.Fatalf("extracted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractIndexesAreSequential(t *testing.T) {
	paras := Extract([]byte(sampleDoc), DefaultOptions())
	for i, p := range paras {
		if p.Index != i {
			t.Errorf("paragraph %d carries index %d", i, p.Index)
		}
		if p.ID == "" {
			t.Errorf("paragraph %d has no ID", i)
		}
	}
}

func TestExtractHeadingsSkipped(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipHeadings = true
	paras := Extract([]byte(sampleDoc), opts)

	if len(paras) == 0 || paras[0].Text != "First paragraph with bold and a link." {
		t.Errorf("expected heading dropped, got %v", texts(paras))
	}
}

func TestExtractCodeBlocksIncluded(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipCodeBlocks = false
	paras := Extract([]byte(sampleDoc), opts)

	found := false
	for _, p := range paras {
		if strings.Contains(p.Text, "fmt.Println") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected code block content, got %v", texts(paras))
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	if paras := Extract([]byte(""), DefaultOptions()); len(paras) != 0 {
		t.Errorf("expected no paragraphs, got %v", texts(paras))
	}
}

func TestExtractIDsStableAcrossRuns(t *testing.T) {
	a := Extract([]byte(sampleDoc), DefaultOptions())
	b := Extract([]byte(sampleDoc), DefaultOptions())
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("paragraph %d ID changed between runs: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

func TestExtractIDsDifferForSameTextAtDifferentPositions(t *testing.T) {
	doc := "Repeat me.\n\nRepeat me.\n"
	paras := Extract([]byte(doc), DefaultOptions())
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %v", texts(paras))
	}
	if paras[0].ID == paras[1].ID {
		t.Error("identical text at different positions must get distinct IDs")
	}
}

func TestExtractText(t *testing.T) {
	doc := "First block.\nStill first.\n\nSecond block.\n\n\nThird.\n"
	paras := ExtractText([]byte(doc))

	want := []string{"First block. Still first.", "Second block.", "Third."}
	got := texts(paras)
	if len(got) != len(want) {
		t.Fatalf("extracted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProviderHintConsultedLive(t *testing.T) {
	paras := Extract([]byte(sampleDoc), DefaultOptions())
	var hint *speak.IndexHint
	p := NewProvider(paras, func() *speak.IndexHint { return hint })

	if p.InitialIndexHint() != nil {
		t.Error("expected nil hint before one is set")
	}
	hint = &speak.IndexHint{Index: 2}
	got := p.InitialIndexHint()
	if got == nil || got.Index != 2 {
		t.Errorf("expected live hint, got %+v", got)
	}
	if len(p.Paragraphs()) != len(paras) {
		t.Error("provider does not expose the full sequence")
	}
}
