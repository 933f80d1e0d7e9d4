package normalize

import (
	"testing"

	knakk "github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iri(t *testing.T, s string) knakk.IRI {
	t.Helper()
	v, err := knakk.NewIRI(s)
	require.NoError(t, err)
	return v
}

func lit(t *testing.T, s string) knakk.Literal {
	t.Helper()
	v, err := knakk.NewLiteral(s)
	require.NoError(t, err)
	return v
}

func TestRecordsFromStatements(t *testing.T) {
	subj := iri(t, "https://www.zotero.org/groups/1/items/A1")
	triples := []knakk.Triple{
		{Subj: subj, Pred: iri(t, "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"), Obj: iri(t, "http://ex/#book")},
		{Subj: subj, Pred: iri(t, "http://ex/#title"), Obj: lit(t, "X")},
		{Subj: subj, Pred: iri(t, "http://ex/#tag"), Obj: lit(t, "first")},
		{Subj: subj, Pred: iri(t, "http://ex/#tag"), Obj: lit(t, "second")},
	}

	records := RecordsFromStatements(triples)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "A1", rec.Key)
	assert.Equal(t, KindItem, rec.Kind)
	assert.Equal(t, "book", rec.RawType)
	assert.Equal(t, "X", rec.FieldScalar("title"))

	tags, ok := rec.Field("tag")
	require.True(t, ok)
	assert.Equal(t, []string{"first", "second"}, tags.List)
}

func TestRecordsFromStatementsGroupsBySubject(t *testing.T) {
	a := iri(t, "http://ex/items/A")
	b := iri(t, "http://ex/items/B")
	title := iri(t, "http://ex/#title")
	triples := []knakk.Triple{
		{Subj: a, Pred: title, Obj: lit(t, "first")},
		{Subj: b, Pred: title, Obj: lit(t, "second")},
		{Subj: a, Pred: iri(t, "http://ex/#date"), Obj: lit(t, "1999")},
	}

	records := RecordsFromStatements(triples)
	require.Len(t, records, 2)
	// First-seen subject order is preserved.
	assert.Equal(t, "A", records[0].Key)
	assert.Equal(t, "B", records[1].Key)
	assert.Equal(t, "1999", records[0].FieldScalar("date"))
}
