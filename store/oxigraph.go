package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ch-sander/zotero-rdf-server/rdf"
)

// Oxigraph talks to an external Oxigraph server over its Graph Store and
// SPARQL endpoints. Graph replacement uses a single PUT, which the server
// applies atomically.
type Oxigraph struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

// NewOxigraph creates a gateway for the server at base (e.g.
// "http://localhost:7878"). logger may be nil.
func NewOxigraph(base string, logger *slog.Logger) *Oxigraph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oxigraph{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}
}

var _ Gateway = (*Oxigraph)(nil)

func (o *Oxigraph) storeURL(graph rdf.IRI) string {
	if graph == "" {
		return o.base + "/store"
	}
	return o.base + "/store?graph=" + url.QueryEscape(string(graph))
}

func (o *Oxigraph) ReplaceGraph(ctx context.Context, graph rdf.IRI, triples []rdf.Triple) error {
	if graph == "" {
		return fmt.Errorf("%w: empty graph IRI", ErrLoadFailed)
	}
	var buf bytes.Buffer
	for _, t := range triples {
		buf.WriteString(t.NTriples())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, o.storeURL(graph), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", FormatNTriples.ContentType())
	return o.do(req, nil)
}

func (o *Oxigraph) ReplaceSerialized(ctx context.Context, graph rdf.IRI, format Format, r io.Reader) error {
	if graph == "" {
		return fmt.Errorf("%w: empty graph IRI", ErrLoadFailed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, o.storeURL(graph), r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", format.ContentType())
	if err := o.do(req, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return nil
}

func (o *Oxigraph) LoadSerialized(ctx context.Context, graph rdf.IRI, format Format, r io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.storeURL(graph), r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", format.ContentType())
	if err := o.do(req, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return nil
}

func (o *Oxigraph) ClearGraph(ctx context.Context, graph rdf.IRI) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, o.storeURL(graph), nil)
	if err != nil {
		return err
	}
	err = o.do(req, nil)
	// A graph that was never loaded is already clear.
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return nil
	}
	return err
}

func (o *Oxigraph) Export(ctx context.Context, format Format, graph rdf.IRI) (io.ReadCloser, error) {
	if format.NeedsGraph() && graph == "" {
		return nil, ErrGraphRequired
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.storeURL(graph), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", format.ContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("store export: %s", resp.Status)
	}
	return resp.Body, nil
}

func (o *Oxigraph) Backup(ctx context.Context, dest string) error {
	body, err := o.Export(ctx, FormatNQuads, "")
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return err
	}
	return f.Close()
}

// Optimize is not exposed over Oxigraph's HTTP interface; compaction
// happens server-side.
func (o *Oxigraph) Optimize(ctx context.Context) error {
	o.logger.Debug("optimize requested, delegated to the store server")
	return nil
}

func (o *Oxigraph) NamedGraphs(ctx context.Context) ([]rdf.IRI, error) {
	var result sparqlResults
	query := "SELECT DISTINCT ?g WHERE { GRAPH ?g {} } ORDER BY ?g"
	if err := o.query(ctx, query, &result); err != nil {
		return nil, err
	}
	graphs := make([]rdf.IRI, 0, len(result.Results.Bindings))
	for _, b := range result.Results.Bindings {
		if g, ok := b["g"]; ok {
			graphs = append(graphs, rdf.IRI(g.Value))
		}
	}
	return graphs, nil
}

func (o *Oxigraph) GraphSize(ctx context.Context, graph rdf.IRI) (int, error) {
	var result sparqlResults
	query := fmt.Sprintf("SELECT (COUNT(*) AS ?n) WHERE { GRAPH <%s> { ?s ?p ?o } }", graph)
	if err := o.query(ctx, query, &result); err != nil {
		return 0, err
	}
	if len(result.Results.Bindings) == 0 {
		return 0, nil
	}
	n, ok := result.Results.Bindings[0]["n"]
	if !ok {
		return 0, nil
	}
	return strconv.Atoi(n.Value)
}

type sparqlResults struct {
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

func (o *Oxigraph) query(ctx context.Context, q string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/query", strings.NewReader(q))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", "application/sparql-results+json")
	return o.do(req, out)
}

// statusError is a non-2xx response from the store server.
type statusError struct {
	method  string
	path    string
	code    int
	excerpt string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("store request %s %s: %d %s: %s",
		e.method, e.path, e.code, http.StatusText(e.code), e.excerpt)
}

// do runs the request and decodes a JSON body into out when out is
// non-nil. Non-2xx statuses become statusErrors carrying the status code
// and a body excerpt.
func (o *Oxigraph) do(req *http.Request, out any) error {
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{
			method:  req.Method,
			path:    req.URL.Path,
			code:    resp.StatusCode,
			excerpt: strings.TrimSpace(string(excerpt)),
		}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
