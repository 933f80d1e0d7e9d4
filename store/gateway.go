// Package store is the gateway to the quad store. The engine is
// replaceable: an in-process memory store backs tests and single-binary
// deployments, an HTTP client talks to an external Oxigraph server. Both
// guarantee per-graph atomic replace; readers never observe a graph
// half-cleared or half-loaded.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ch-sander/zotero-rdf-server/rdf"
)

var (
	// ErrLoadFailed marks a load that was rolled back; the previous graph
	// contents remain visible.
	ErrLoadFailed = errors.New("store: load failed")
	// ErrGraphRequired is returned for export formats that cannot carry
	// more than one graph.
	ErrGraphRequired = errors.New("store: format requires a single graph")
	// ErrUnknownFormat is returned for an unrecognized serialization name.
	ErrUnknownFormat = errors.New("store: unknown format")
)

// Format names an RDF serialization.
type Format string

const (
	FormatTriG     Format = "trig"
	FormatNQuads   Format = "nquads"
	FormatTurtle   Format = "ttl"
	FormatNTriples Format = "nt"
	FormatN3       Format = "n3"
	FormatRDFXML   Format = "xml"
)

// ParseFormat resolves a user-supplied format name, accepting the common
// aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trig", "application/trig":
		return FormatTriG, nil
	case "nquads", "nq", "n-quads", "application/n-quads":
		return FormatNQuads, nil
	case "ttl", "turtle", "text/turtle":
		return FormatTurtle, nil
	case "nt", "ntriples", "n-triples", "application/n-triples":
		return FormatNTriples, nil
	case "n3", "text/n3":
		return FormatN3, nil
	case "xml", "rdf/xml", "rdfxml", "application/rdf+xml", "pretty-xml":
		return FormatRDFXML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// NeedsGraph reports whether the format is triple-only and therefore
// requires a single target graph on export.
func (f Format) NeedsGraph() bool {
	switch f {
	case FormatTurtle, FormatNTriples, FormatN3, FormatRDFXML:
		return true
	}
	return false
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatTriG:
		return "application/trig"
	case FormatNQuads:
		return "application/n-quads"
	case FormatTurtle:
		return "text/turtle"
	case FormatNTriples:
		return "application/n-triples"
	case FormatN3:
		return "text/n3"
	case FormatRDFXML:
		return "application/rdf+xml"
	}
	return "application/octet-stream"
}

// Extension returns the file extension for the format, dot included.
func (f Format) Extension() string {
	switch f {
	case FormatNQuads:
		return ".nq"
	case FormatRDFXML:
		return ".rdf"
	default:
		return "." + string(f)
	}
}

// FormatForExtension maps a file extension (dot included) to its load
// format; ok is false for unrecognized extensions.
func FormatForExtension(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".trig":
		return FormatTriG, true
	case ".nq", ".nquads":
		return FormatNQuads, true
	case ".ttl":
		return FormatTurtle, true
	case ".nt":
		return FormatNTriples, true
	case ".rdf", ".xml", ".owl":
		return FormatRDFXML, true
	}
	return "", false
}

// Gateway is the store contract the refresh pipeline and the HTTP surface
// program against.
type Gateway interface {
	// ReplaceGraph atomically replaces the named graph's contents. On
	// error the previous contents remain visible.
	ReplaceGraph(ctx context.Context, graph rdf.IRI, triples []rdf.Triple) error
	// ReplaceSerialized atomically replaces the named graph with the
	// decoded contents of r. On error, including a decode error, the
	// previous contents remain visible.
	ReplaceSerialized(ctx context.Context, graph rdf.IRI, format Format, r io.Reader) error
	// LoadSerialized bulk-loads serialized RDF into the named graph,
	// appending to its current contents. When graph is empty, quad
	// formats keep their own graph names.
	LoadSerialized(ctx context.Context, graph rdf.IRI, format Format, r io.Reader) error
	// ClearGraph removes the named graph.
	ClearGraph(ctx context.Context, graph rdf.IRI) error
	// Export serializes the store, or one graph when graph is non-empty.
	// Formats that cannot carry multiple graphs require graph to be set.
	Export(ctx context.Context, format Format, graph rdf.IRI) (io.ReadCloser, error)
	// Backup writes a full dump to the destination path.
	Backup(ctx context.Context, dest string) error
	// Optimize compacts the store where the engine supports it.
	Optimize(ctx context.Context) error
	// NamedGraphs lists the named graphs in lexical order.
	NamedGraphs(ctx context.Context) ([]rdf.IRI, error)
	// GraphSize returns the number of triples in the named graph.
	GraphSize(ctx context.Context, graph rdf.IRI) (int, error)
}
