package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemEnvelope(t *testing.T, data string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"data":`+data+`}`), &raw))
	return raw
}

func TestFromItemJSON(t *testing.T) {
	raw := itemEnvelope(t, `{
		"key": "A1",
		"itemType": "book",
		"title": "X",
		"numPages": 240,
		"tags": [{"tag": "important", "type": 1}],
		"creators": [{"creatorType": "author", "firstName": "J", "lastName": "Doe"}],
		"collections": ["C1", "C2"]
	}`)

	rec, err := FromItemJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, KindItem, rec.Kind)
	assert.Equal(t, "A1", rec.Key)
	assert.Equal(t, "book", rec.RawType)
	assert.Equal(t, "X", rec.FieldScalar("title"))
	assert.Equal(t, "240", rec.FieldScalar("numPages"))

	tags, ok := rec.Field("tags")
	require.True(t, ok)
	require.Equal(t, Objects, tags.Kind)
	assert.Equal(t, "important", tags.Objects[0]["tag"])

	cols, ok := rec.Field("collections")
	require.True(t, ok)
	assert.Equal(t, []string{"C1", "C2"}, cols.List)
}

func TestFromItemJSONMalformed(t *testing.T) {
	_, err := FromItemJSON(map[string]any{"key": "nodata"})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = FromItemJSON(itemEnvelope(t, `{"itemType": "book"}`))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestFromCollectionJSON(t *testing.T) {
	raw := itemEnvelope(t, `{
		"key": "C1",
		"name": "Sources",
		"parentCollection": false
	}`)
	rec, err := FromCollectionJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, KindCollection, rec.Kind)
	assert.Equal(t, "C1", rec.Key)
	assert.Equal(t, "Sources", rec.FieldScalar("name"))
	// JSON false is stringified, not dropped; the mapper skips the marker.
	assert.Equal(t, "false", rec.FieldScalar("parentCollection"))
}

func TestFromItemJSONLibraryEnvelope(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"data": {"key": "A1", "itemType": "note"},
		"library": {
			"type": "group",
			"name": "My Group",
			"links": {"alternate": {"href": "https://www.zotero.org/groups/1"}}
		}
	}`), &raw))

	rec, err := FromItemJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://www.zotero.org/groups/1", rec.LibraryHref)
	assert.Equal(t, "My Group", rec.Library["name"])
}

func TestFieldEmptyValuesAreAbsent(t *testing.T) {
	rec, err := FromItemJSON(itemEnvelope(t, `{"key": "A1", "title": "", "tags": []}`))
	require.NoError(t, err)
	if _, ok := rec.Field("title"); ok {
		t.Error("empty title should be absent")
	}
	if _, ok := rec.Field("tags"); ok {
		t.Error("empty tags should be absent")
	}
}
