package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	knakk "github.com/knakk/rdf"

	"github.com/ch-sander/zotero-rdf-server/rdf"
)

// Memory is the in-process quad store. Graph contents are immutable
// snapshots swapped under a write lock, so concurrent readers see either
// the full previous or the full next generation of a graph, never a mix.
type Memory struct {
	logger *slog.Logger

	mu     sync.RWMutex
	graphs graphSet
}

// NewMemory creates an empty store. logger may be nil.
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{logger: logger, graphs: make(graphSet)}
}

var _ Gateway = (*Memory)(nil)

func (m *Memory) ReplaceGraph(ctx context.Context, graph rdf.IRI, triples []rdf.Triple) error {
	if graph == "" {
		return fmt.Errorf("%w: empty graph IRI", ErrLoadFailed)
	}
	next := rdf.Dedupe(append([]rdf.Triple(nil), triples...))

	m.mu.Lock()
	m.graphs[graph] = next
	m.mu.Unlock()

	m.logger.Debug("graph replaced", "graph", string(graph), "triples", len(next))
	return nil
}

func (m *Memory) ReplaceSerialized(ctx context.Context, graph rdf.IRI, format Format, r io.Reader) error {
	if graph == "" {
		return fmt.Errorf("%w: empty graph IRI", ErrLoadFailed)
	}
	// Decode fully before taking the lock: a broken payload must leave
	// the current generation in place.
	quads, err := decodeQuads(graph, format, r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	next := rdf.Dedupe(quads[graph])

	m.mu.Lock()
	m.graphs[graph] = next
	m.mu.Unlock()

	m.logger.Debug("graph replaced from serialized input", "graph", string(graph), "triples", len(next))
	return nil
}

func (m *Memory) LoadSerialized(ctx context.Context, graph rdf.IRI, format Format, r io.Reader) error {
	quads, err := decodeQuads(graph, format, r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	m.mu.Lock()
	for g, ts := range quads {
		m.graphs[g] = rdf.Dedupe(append(append([]rdf.Triple(nil), m.graphs[g]...), ts...))
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) ClearGraph(ctx context.Context, graph rdf.IRI) error {
	m.mu.Lock()
	delete(m.graphs, graph)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Export(ctx context.Context, format Format, graph rdf.IRI) (io.ReadCloser, error) {
	if format.NeedsGraph() && graph == "" {
		return nil, ErrGraphRequired
	}

	snapshot := m.snapshot(graph)
	var buf bytes.Buffer
	if err := serialize(&buf, format, snapshot); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

func (m *Memory) Backup(ctx context.Context, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := serialize(f, FormatNQuads, m.snapshot("")); err != nil {
		return err
	}
	return f.Close()
}

// Optimize is a no-op for the memory engine.
func (m *Memory) Optimize(ctx context.Context) error {
	m.logger.Debug("optimize requested, nothing to do for memory store")
	return nil
}

func (m *Memory) NamedGraphs(ctx context.Context) ([]rdf.IRI, error) {
	m.mu.RLock()
	graphs := make([]rdf.IRI, 0, len(m.graphs))
	for g := range m.graphs {
		graphs = append(graphs, g)
	}
	m.mu.RUnlock()

	sort.Slice(graphs, func(i, j int) bool { return graphs[i] < graphs[j] })
	return graphs, nil
}

func (m *Memory) GraphSize(ctx context.Context, graph rdf.IRI) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.graphs[graph]), nil
}

// snapshot copies the graph map under the read lock. Triple slices are
// shared, safe because stored slices are never mutated after the swap.
func (m *Memory) snapshot(graph rdf.IRI) graphSet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if graph != "" {
		gs := make(graphSet, 1)
		if ts, ok := m.graphs[graph]; ok {
			gs[graph] = ts
		}
		return gs
	}
	gs := make(graphSet, len(m.graphs))
	for g, ts := range m.graphs {
		gs[g] = ts
	}
	return gs
}

// decodeQuads parses serialized RDF into per-graph triples. A non-empty
// graph forces everything into that graph; otherwise quad formats keep
// their own graph names. TriG input is accepted only by engines that parse
// it natively.
func decodeQuads(graph rdf.IRI, format Format, r io.Reader) (graphSet, error) {
	gs := make(graphSet)

	switch format {
	case FormatNTriples, FormatTurtle, FormatN3, FormatRDFXML:
		dec := knakk.NewTripleDecoder(r, knakkFormat(format))
		triples, err := dec.DecodeAll()
		if err != nil {
			return nil, err
		}
		for _, t := range triples {
			if conv, ok := fromStatement(t); ok {
				gs[graph] = append(gs[graph], conv)
			}
		}
		return gs, nil

	case FormatNQuads:
		dec := knakk.NewQuadDecoder(r, knakk.NQuads)
		quads, err := dec.DecodeAll()
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			conv, ok := fromStatement(q.Triple)
			if !ok {
				continue
			}
			g := graph
			if g == "" && q.Ctx != nil {
				g = rdf.IRI(q.Ctx.String())
			}
			gs[g] = append(gs[g], conv)
		}
		return gs, nil
	}

	return nil, fmt.Errorf("%w: cannot parse %q", ErrUnknownFormat, format)
}

// DecodeStatements parses serialized RDF into statements, flattening quad
// formats onto their triples. TriG has no in-process decoder.
func DecodeStatements(format Format, r io.Reader) ([]knakk.Triple, error) {
	switch format {
	case FormatNTriples, FormatTurtle, FormatN3, FormatRDFXML:
		return knakk.NewTripleDecoder(r, knakkFormat(format)).DecodeAll()
	case FormatNQuads:
		quads, err := knakk.NewQuadDecoder(r, knakk.NQuads).DecodeAll()
		if err != nil {
			return nil, err
		}
		triples := make([]knakk.Triple, len(quads))
		for i, q := range quads {
			triples[i] = q.Triple
		}
		return triples, nil
	}
	return nil, fmt.Errorf("%w: cannot parse %q", ErrUnknownFormat, format)
}

func knakkFormat(f Format) knakk.Format {
	switch f {
	case FormatTurtle, FormatN3:
		return knakk.Turtle
	case FormatRDFXML:
		return knakk.RDFXML
	default:
		return knakk.NTriples
	}
}

// fromStatement converts a parsed statement to the internal triple type.
// Blank-node subjects and objects are dropped: without stable identifiers
// they cannot survive a graph replace.
func fromStatement(t knakk.Triple) (rdf.Triple, bool) {
	if t.Subj.Type() != knakk.TermIRI || t.Pred.Type() != knakk.TermIRI {
		return rdf.Triple{}, false
	}

	out := rdf.Triple{
		Subject:   rdf.IRI(t.Subj.String()),
		Predicate: rdf.IRI(t.Pred.String()),
	}

	switch t.Obj.Type() {
	case knakk.TermIRI:
		out.Object = rdf.IRIObject(rdf.IRI(t.Obj.String()))
	case knakk.TermLiteral:
		lit, ok := t.Obj.(knakk.Literal)
		if !ok {
			out.Object = rdf.Literal(t.Obj.String())
			break
		}
		switch {
		case lit.Lang() != "":
			out.Object = rdf.LangLiteral(lit.String(), lit.Lang())
		case lit.DataType.String() != "" && lit.DataType.String() != xsdString:
			out.Object = rdf.TypedLiteral(lit.String(), rdf.IRI(lit.DataType.String()))
		default:
			out.Object = rdf.Literal(lit.String())
		}
	default:
		return rdf.Triple{}, false
	}
	return out, true
}

const xsdString = "http://www.w3.org/2001/XMLSchema#string"
