package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary"
)

func TestParseConvertsToMarkdown(t *testing.T) {
	p := NewParser()
	note, err := p.Parse(`<h1>Reading notes</h1><p>On <b>method</b>.</p>`)
	require.NoError(t, err)

	assert.Contains(t, note.Markdown, "# Reading notes")
	assert.Contains(t, note.Markdown, "**method**")
	assert.Equal(t, "Reading notes", note.Title)
	assert.Empty(t, note.Links)
}

func TestParseTitleFallsBackToFirstLine(t *testing.T) {
	p := NewParser()
	note, err := p.Parse(`<p>A plain first paragraph.</p><p>More.</p>`)
	require.NoError(t, err)
	assert.Equal(t, "A plain first paragraph.", note.Title)
}

func TestParseTitleTruncated(t *testing.T) {
	p := NewParser()
	long := strings.Repeat("ä", 200)
	note, err := p.Parse("<p>" + long + "</p>")
	require.NoError(t, err)
	assert.Equal(t, 120, len([]rune(note.Title)))
}

func TestParseCollectsAbsoluteLinks(t *testing.T) {
	p := NewParser()
	note, err := p.Parse(`<p>
		See <a href="https://example.org/a">a</a>,
		<a href="https://example.org/a">a again</a>,
		<a href="#section">fragment</a>,
		<a href="/relative">relative</a>
		and <a href="https://example.org/b">b</a>.
	</p>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org/a", "https://example.org/b"}, note.Links)
}

func TestParseCollapsesBlankRuns(t *testing.T) {
	p := NewParser()
	note, err := p.Parse(`<p>one</p><br><br><br><p>two</p>`)
	require.NoError(t, err)
	assert.NotContains(t, note.Markdown, "\n\n\n")
}

func TestNoteTriples(t *testing.T) {
	n := Note{
		Markdown: "# T\n\nbody",
		Title:    "T",
		Links:    []string{"https://example.org/x"},
	}
	subject := rdf.IRI("http://ex/items/A1")
	pred := rdf.IRI("http://ex/#note")
	linkPred := rdf.IRI("http://ex/#link")

	ts := n.Triples(subject, pred, linkPred)
	require.Len(t, ts, 3)
	assert.Equal(t, rdf.Triple{Subject: subject, Predicate: pred, Object: rdf.Literal("# T\n\nbody")}, ts[0])
	assert.Equal(t, rdf.IRI(vocabulary.RdfsLabel), ts[1].Predicate)
	assert.Equal(t, rdf.Literal("T"), ts[1].Object)
	assert.Equal(t, rdf.IRIObject("https://example.org/x"), ts[2].Object)
}

func TestNoteTriplesEmptyNote(t *testing.T) {
	assert.Empty(t, Note{}.Triples("http://ex/items/A1", "http://ex/#note", "http://ex/#link"))
}
