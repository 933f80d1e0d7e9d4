package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ch-sander/zotero-rdf-server/config"
)

func TestCompileExpandsTokens(t *testing.T) {
	lib := testLibrary()
	lib.Map.ItemType = []string{"_Item", "itemType", "_http://other/Class"}
	rules, err := Compile(testCtx, lib)
	require.NoError(t, err)

	require.Len(t, rules.ItemType, 3)
	assert.Equal(t, "Item", rules.ItemType[0].Constant)
	assert.Equal(t, "itemType", rules.ItemType[1].Field)
	assert.Equal(t, "http://other/Class", rules.ItemType[2].Constant)
}

func TestCompileRejectsBadTokens(t *testing.T) {
	lib := testLibrary()
	lib.Map.ItemType = []string{"_"}
	_, err := Compile(testCtx, lib)
	assert.ErrorIs(t, err, config.ErrInvalidRules)

	lib = testLibrary()
	lib.Map.CollectionType = []string{""}
	_, err = Compile(testCtx, lib)
	assert.ErrorIs(t, err, config.ErrInvalidRules)
}

func TestCompileRejectsUnresolvableAdditionalProperty(t *testing.T) {
	lib := testLibrary()
	lib.Map.Additional = []config.AdditionalTriple{
		{Property: "has space in token", Value: "_x"},
	}
	_, err := Compile(testCtx, lib)
	assert.ErrorIs(t, err, config.ErrInvalidRules)
}

func TestCompileDefaultEntityFields(t *testing.T) {
	rules, err := Compile(testCtx, testLibrary())
	require.NoError(t, err)
	assert.True(t, rules.Structured("place"))
	assert.True(t, rules.Structured("publisher"))
	assert.True(t, rules.Structured("tags"))
	assert.False(t, rules.Structured("title"))

	lib := testLibrary()
	lib.Map.RDFMapping = []string{"series"}
	rules, err = Compile(testCtx, lib)
	require.NoError(t, err)
	// An explicit rdf_mapping list replaces the default entity fields.
	assert.False(t, rules.Structured("place"))
	assert.True(t, rules.Structured("series"))
}

func TestEmittedPolicy(t *testing.T) {
	rules, err := Compile(testCtx, testLibrary())
	require.NoError(t, err)
	assert.True(t, rules.Emitted("anything"))

	lib := testLibrary()
	lib.Map.White = []string{"title"}
	rules, err = Compile(testCtx, lib)
	require.NoError(t, err)
	assert.True(t, rules.Emitted("title"))
	assert.False(t, rules.Emitted("abstract"))
	assert.True(t, rules.Emitted("tags"), "structured fields bypass the allow list")

	lib = testLibrary()
	lib.Map.Black = []string{"abstract"}
	rules, err = Compile(testCtx, lib)
	require.NoError(t, err)
	assert.False(t, rules.Emitted("abstract"))
	assert.True(t, rules.Emitted("title"))
}
