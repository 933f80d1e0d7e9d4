package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLibrary(name, id string) Library {
	return Library{
		Name:        name,
		LoadMode:    "json",
		LibraryType: "groups",
		LibraryID:   id,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Libraries = []Library{validLibrary("a", "100")}
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsDuplicateNamesAndGraphs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Libraries = []Library{validLibrary("a", "100"), validLibrary("a", "200")}
	assert.ErrorContains(t, cfg.Validate(), "duplicate library name")

	cfg.Libraries = []Library{validLibrary("a", "100"), validLibrary("b", "100")}
	assert.ErrorContains(t, cfg.Validate(), "same graph")
}

func TestValidateRejectsBadRules(t *testing.T) {
	cfg := DefaultConfig()
	lib := validLibrary("a", "100")
	bad := 150
	lib.Map.Fuzzy = &bad
	cfg.Libraries = []Library{lib}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidRules)

	cfg = DefaultConfig()
	lib = validLibrary("a", "100")
	lib.Map.Additional = []AdditionalTriple{{Property: "http://ex/p"}}
	cfg.Libraries = []Library{lib}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidRules)
}

func TestValidateRejectsBadLoadMode(t *testing.T) {
	cfg := DefaultConfig()
	lib := validLibrary("a", "100")
	lib.LoadMode = "csv"
	cfg.Libraries = []Library{lib}
	assert.ErrorContains(t, cfg.Validate(), "load_mode")
}

func TestGraphIRI(t *testing.T) {
	ctx := DefaultConfig().Context
	lib := validLibrary("a", "12345")
	assert.Equal(t, "https://www.zotero.org/groups/12345", lib.GraphIRI(ctx))

	lib.BaseURI = "http://graphs.example.org/mine/"
	assert.Equal(t, "http://graphs.example.org/mine", lib.GraphIRI(ctx))
}

func TestIdentityNamespaceFollowsKnowledgeBase(t *testing.T) {
	ctx := DefaultConfig().Context
	lib := validLibrary("a", "12345")
	assert.Equal(t, lib.GraphIRI(ctx), lib.IdentityNamespace(ctx))

	lib.KnowledgeBaseGraph = "http://kb.example.org/#"
	assert.Equal(t, "http://kb.example.org", lib.IdentityNamespace(ctx))
	assert.True(t, lib.KnowledgeBaseEnabled())
}

func TestFuzzyThresholdDefault(t *testing.T) {
	lib := validLibrary("a", "1")
	assert.Equal(t, 90, lib.FuzzyThreshold())
	v := 75
	lib.Map.Fuzzy = &v
	assert.Equal(t, 75, lib.FuzzyThreshold())
}

func TestIntervalFallsBackToServer(t *testing.T) {
	srv := Server{RefreshInterval: time.Hour}
	lib := validLibrary("a", "1")
	assert.Equal(t, time.Hour, lib.Interval(srv))
	lib.RefreshInterval = 10 * time.Minute
	assert.Equal(t, 10*time.Minute, lib.Interval(srv))
}
