package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ch-sander/zotero-rdf-server/config"
)

func testLibrary() config.Library {
	return config.Library{
		Name:        "demo",
		LibraryType: "groups",
		LibraryID:   "1",
		APIKey:      "secret",
	}
}

func itemPage(n, start int) []map[string]any {
	page := make([]map[string]any, n)
	for i := range page {
		page[i] = map[string]any{"key": fmt.Sprintf("K%d", start+i)}
	}
	return page
}

func TestClientItemsPagination(t *testing.T) {
	var starts []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/1/items", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Zotero-API-Key"))
		assert.Equal(t, "data", r.URL.Query().Get("include"))

		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		starts = append(starts, start)
		n := pageLimit
		if start >= pageLimit {
			n = 3 // short page terminates pagination
		}
		json.NewEncoder(w).Encode(itemPage(n, start))
	}))
	defer srv.Close()

	c := NewClient(config.Context{APIURL: srv.URL}, nil)
	items, err := c.Items(context.Background(), testLibrary())
	require.NoError(t, err)
	assert.Len(t, items, pageLimit+3)
	assert.Equal(t, []int{0, pageLimit}, starts)
	assert.Equal(t, "K0", items[0]["key"])
	assert.Equal(t, fmt.Sprintf("K%d", pageLimit+2), items[len(items)-1]["key"])
}

func TestClientRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(itemPage(1, 0))
	}))
	defer srv.Close()

	c := NewClient(config.Context{APIURL: srv.URL}, nil)
	items, err := c.Items(context.Background(), testLibrary())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientAuthFailureIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(config.Context{APIURL: srv.URL}, nil)
	_, err := c.Items(context.Background(), testLibrary())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestClientMalformedBodyIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, "{not json")
	}))
	defer srv.Close()

	c := NewClient(config.Context{APIURL: srv.URL}, nil)
	_, err := c.Items(context.Background(), testLibrary())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRDFExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rdf_zotero", r.URL.Query().Get("format"))
		io.WriteString(w, "<rdf:RDF/>")
	}))
	defer srv.Close()

	c := NewClient(config.Context{APIURL: srv.URL}, nil)
	body, err := c.RDFExport(context.Background(), testLibrary())
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "<rdf:RDF/>", string(data))
}

func TestClientRDFExportFormatOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rdf_dc", r.URL.Query().Get("format"))
		io.WriteString(w, "<rdf:RDF/>")
	}))
	defer srv.Close()

	lib := testLibrary()
	lib.RDFExportFormat = "rdf_dc"
	c := NewClient(config.Context{APIURL: srv.URL}, nil)
	body, err := c.RDFExport(context.Background(), lib)
	require.NoError(t, err)
	body.Close()
}

func TestClientQueryParamsForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "journalArticle", r.URL.Query().Get("itemType"))
		json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer srv.Close()

	lib := testLibrary()
	lib.APIQueryParams = map[string]string{"itemType": "journalArticle"}
	c := NewClient(config.Context{APIURL: srv.URL}, nil)
	_, err := c.Items(context.Background(), lib)
	require.NoError(t, err)
}
