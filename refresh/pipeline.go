package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	knakk "github.com/knakk/rdf"

	"github.com/ch-sander/zotero-rdf-server/assemble"
	"github.com/ch-sander/zotero-rdf-server/config"
	"github.com/ch-sander/zotero-rdf-server/fetch"
	"github.com/ch-sander/zotero-rdf-server/identity"
	"github.com/ch-sander/zotero-rdf-server/mapping"
	"github.com/ch-sander/zotero-rdf-server/normalize"
	"github.com/ch-sander/zotero-rdf-server/notes"
	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/store"
	"github.com/ch-sander/zotero-rdf-server/vocabulary/zotero"
)

// Result is the outcome of one successful refresh.
type Result struct {
	// Triples is the number of triples loaded across target graphs.
	Triples int
	// Graphs lists the graphs written to.
	Graphs []rdf.IRI
}

// Pipeline runs one library's refresh: fetch, normalize, map, assemble,
// load. Each run builds a fresh identity resolver and assembler, so a
// refresh is a pure function of the current source data.
type Pipeline struct {
	ctx       config.Context
	lib       config.Library
	rules     mapping.RuleSet
	api       *fetch.Client
	gateway   store.Gateway
	notes     *notes.Parser
	importDir string
	clock     Clock
	logger    *slog.Logger
}

// NewPipeline compiles the library's rules and wires the pipeline. Rule
// problems surface here, before any scheduling starts.
func NewPipeline(cctx config.Context, lib config.Library, api *fetch.Client, gateway store.Gateway, importDir string, clock Clock, logger *slog.Logger) (*Pipeline, error) {
	rules, err := mapping.Compile(cctx, lib)
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", lib.Name, err)
	}
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		ctx:       cctx,
		lib:       lib,
		rules:     rules,
		api:       api,
		gateway:   gateway,
		notes:     notes.NewParser(),
		importDir: importDir,
		clock:     clock,
		logger:    logger.With("library", lib.Name),
	}, nil
}

// Library returns the library name.
func (p *Pipeline) Library() string { return p.lib.Name }

// Graph returns the library's named graph IRI.
func (p *Pipeline) Graph() rdf.IRI { return p.rules.GraphIRI }

// Interval returns the effective refresh interval given server defaults.
func (p *Pipeline) Interval(srv config.Server) time.Duration { return p.lib.Interval(srv) }

// Run executes one refresh. observe is called on every phase transition;
// nil is allowed.
func (p *Pipeline) Run(ctx context.Context, observe func(State)) (Result, error) {
	if observe == nil {
		observe = func(State) {}
	}
	switch p.lib.LoadMode {
	case "rdf":
		return p.runPassThrough(ctx, observe)
	case "manual_import":
		return p.runManualImport(ctx, observe)
	default:
		return p.runJSON(ctx, observe)
	}
}

// runJSON is the full mapping path: API JSON in, mapped graphs out.
func (p *Pipeline) runJSON(ctx context.Context, observe func(State)) (Result, error) {
	observe(StateFetching)
	items, err := p.api.Items(ctx, p.lib)
	if err != nil {
		return Result{}, fmt.Errorf("fetching items: %w", err)
	}
	collections, err := p.api.Collections(ctx, p.lib)
	if err != nil {
		return Result{}, fmt.Errorf("fetching collections: %w", err)
	}

	observe(StateMapping)
	records := p.normalizeJSON(items, collections)
	batches := p.mapRecords(records)

	observe(StateLoading)
	return p.load(ctx, batches)
}

// runPassThrough bulk-loads the library's RDF export without mapping.
func (p *Pipeline) runPassThrough(ctx context.Context, observe func(State)) (Result, error) {
	observe(StateFetching)
	body, err := p.api.RDFExport(ctx, p.lib)
	if err != nil {
		return Result{}, fmt.Errorf("fetching RDF export: %w", err)
	}
	// Buffer the whole export before touching the graph, so a broken
	// download never empties a healthy graph.
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return Result{}, fmt.Errorf("%w: reading RDF export: %v", fetch.ErrUnavailable, err)
	}

	observe(StateLoading)
	graph := p.rules.GraphIRI
	if err := p.gateway.ReplaceSerialized(ctx, graph, store.FormatRDFXML, bytes.NewReader(data)); err != nil {
		return Result{}, err
	}
	n, err := p.gateway.GraphSize(ctx, graph)
	if err != nil {
		return Result{}, err
	}
	return Result{Triples: n, Graphs: []rdf.IRI{graph}}, nil
}

// runManualImport loads local files: JSON files re-enter the mapping
// pipeline, serialized RDF files are decoded into canonical records and
// re-mapped. Everything lands in one record set, so the library graph is
// replaced in a single swap.
func (p *Pipeline) runManualImport(ctx context.Context, observe func(State)) (Result, error) {
	observe(StateFetching)
	files, err := fetch.ListImports(p.ImportPath(), "")
	if err != nil {
		return Result{}, err
	}

	var items []map[string]any
	var records []normalize.Record
	for _, f := range files {
		if f.IsRDF() {
			statements, err := readStatements(f)
			if err != nil {
				p.logger.Warn("skipping unreadable import file", "path", f.Path, "error", err)
				continue
			}
			records = append(records, normalize.RecordsFromStatements(statements)...)
			continue
		}
		page, err := readItemsJSON(f.Path)
		if err != nil {
			p.logger.Warn("skipping unreadable import file", "path", f.Path, "error", err)
			continue
		}
		items = append(items, page...)
	}

	observe(StateMapping)
	records = append(records, p.normalizeJSON(items, nil)...)
	batches := p.mapRecords(records)

	observe(StateLoading)
	return p.load(ctx, batches)
}

// readStatements decodes one serialized RDF import file. Quad formats lose
// their graph names: imported statements always belong to the importing
// library's graph.
func readStatements(f fetch.ImportFile) ([]knakk.Triple, error) {
	format, ok := store.FormatForExtension(f.Ext)
	if !ok {
		return nil, fmt.Errorf("no decoder for %q files", f.Ext)
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return store.DecodeStatements(format, r)
}

// ImportPath resolves the library's import directory: load_from when set
// (relative to the server import directory), else a directory named after
// the library.
func (p *Pipeline) ImportPath() string {
	from := p.lib.LoadFrom
	switch {
	case from == "":
		return filepath.Join(p.importDir, p.lib.Name)
	case filepath.IsAbs(from):
		return from
	default:
		return filepath.Join(p.importDir, from)
	}
}

func (p *Pipeline) normalizeJSON(items, collections []map[string]any) []normalize.Record {
	records := make([]normalize.Record, 0, len(items)+len(collections))
	for _, raw := range collections {
		rec, err := normalize.FromCollectionJSON(raw)
		if err != nil {
			p.logger.Warn("skipping malformed collection", "error", err)
			continue
		}
		records = append(records, rec)
	}
	for _, raw := range items {
		rec, err := normalize.FromItemJSON(raw)
		if err != nil {
			p.logger.Warn("skipping malformed item", "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// mapRecords runs the triple mapper over all records with a fresh identity
// resolver and returns the assembled per-graph batches.
func (p *Pipeline) mapRecords(records []normalize.Record) []assemble.Batch {
	ids := identity.NewResolver(
		p.lib.GraphIRI(p.ctx),
		p.lib.IdentityNamespace(p.ctx),
		p.lib.FuzzyThreshold(),
	)
	mapper := mapping.NewMapper(p.rules, ids, p.clock.Now)

	kbGraph := rdf.IRI("")
	if p.lib.KnowledgeBaseEnabled() && p.lib.KnowledgeBaseGraph != "" {
		kbGraph = rdf.IRI(strings.TrimRight(p.lib.KnowledgeBaseGraph, "/#"))
	}
	asm := assemble.New(p.rules.GraphIRI, kbGraph)

	for _, rec := range records {
		asm.Add(mapper.MapRecord(rec)...)
		if p.lib.Notes.Auto {
			p.stageNotes(asm, ids, rec)
		}
	}

	p.logger.Debug("mapped records", "records", len(records), "triples", asm.Len())
	return asm.Batches()
}

// stageNotes parses a record's HTML note, when present, into content and
// link triples on the record's subject.
func (p *Pipeline) stageNotes(asm *assemble.Assembler, ids *identity.Resolver, rec normalize.Record) {
	noteHTML := rec.FieldScalar(zotero.FieldNote)
	if noteHTML == "" || rec.Kind != normalize.KindItem {
		return
	}
	note, err := p.notes.Parse(noteHTML)
	if err != nil {
		p.logger.Warn("skipping unparseable note", "key", rec.Key, "error", err)
		return
	}

	pred := p.notePredicate()
	linkPred := rdf.IRI(p.rules.Vocab + "link")
	subject := ids.Resolve(zotero.RoleItem, rec.Key)
	for _, t := range note.Triples(subject, pred, linkPred) {
		asm.Add(assemble.Staged{Triple: t, Target: assemble.TargetLibrary})
	}
}

func (p *Pipeline) notePredicate() rdf.IRI {
	if pr := p.lib.Notes.Predicate; pr != "" {
		if rdf.IsAbsoluteIRI(pr) {
			return rdf.CoerceIRI(pr)
		}
		return rdf.IRI(p.rules.Vocab + pr)
	}
	return rdf.IRI(p.rules.Vocab + zotero.FieldNote)
}

// load writes the batches: the library graph is replaced atomically, the
// shared knowledge-base graph is appended to, because other libraries
// contribute to it as well.
func (p *Pipeline) load(ctx context.Context, batches []assemble.Batch) (Result, error) {
	result := Result{}
	replacedLibrary := false
	for _, batch := range batches {
		var err error
		if batch.Graph == p.rules.GraphIRI {
			err = p.gateway.ReplaceGraph(ctx, batch.Graph, batch.Triples)
			replacedLibrary = true
		} else {
			err = p.appendTriples(ctx, batch.Graph, batch.Triples)
		}
		if err != nil {
			return Result{}, fmt.Errorf("loading graph %s: %w", batch.Graph, err)
		}
		result.Triples += len(batch.Triples)
		result.Graphs = append(result.Graphs, batch.Graph)
	}
	// A library whose source came back empty still gets its graph
	// replaced, so deletions upstream propagate.
	if !replacedLibrary {
		if err := p.gateway.ReplaceGraph(ctx, p.rules.GraphIRI, nil); err != nil {
			return Result{}, err
		}
		result.Graphs = append(result.Graphs, p.rules.GraphIRI)
	}
	return result, nil
}

func (p *Pipeline) appendTriples(ctx context.Context, graph rdf.IRI, triples []rdf.Triple) error {
	var buf bytes.Buffer
	for _, t := range triples {
		buf.WriteString(t.NTriples())
	}
	return p.gateway.LoadSerialized(ctx, graph, store.FormatNTriples, &buf)
}

func readItemsJSON(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var page []map[string]any
	if err := json.NewDecoder(f).Decode(&page); err == nil {
		return page, nil
	}

	// Some exports wrap the array in an {"items": [...]} envelope.
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	var wrapped struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(f).Decode(&wrapped); err != nil {
		return nil, err
	}
	if wrapped.Items == nil {
		return nil, errors.New("no items array")
	}
	return wrapped.Items, nil
}
