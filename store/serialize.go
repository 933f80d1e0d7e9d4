package store

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary"
)

// graphSet is the serialization input: graph IRI -> triples. Serializers
// iterate graphs and triples in sorted order so dumps are reproducible.
type graphSet map[rdf.IRI][]rdf.Triple

func (gs graphSet) sortedGraphs() []rdf.IRI {
	graphs := make([]rdf.IRI, 0, len(gs))
	for g := range gs {
		graphs = append(graphs, g)
	}
	sort.Slice(graphs, func(i, j int) bool { return graphs[i] < graphs[j] })
	return graphs
}

func serialize(w io.Writer, format Format, gs graphSet) error {
	switch format {
	case FormatTriG:
		return writeTriG(w, gs)
	case FormatNQuads:
		return writeNQuads(w, gs)
	case FormatTurtle, FormatN3:
		return writeTurtle(w, gs)
	case FormatNTriples:
		return writeNTriples(w, gs)
	case FormatRDFXML:
		return writeRDFXML(w, gs)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeTriG(w io.Writer, gs graphSet) error {
	for _, g := range gs.sortedGraphs() {
		ts := append([]rdf.Triple(nil), gs[g]...)
		rdf.SortTriples(ts)
		if _, err := fmt.Fprintf(w, "<%s> {\n", g); err != nil {
			return err
		}
		for _, t := range ts {
			if _, err := io.WriteString(w, "\t"+t.NTriples()); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "}\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeNQuads(w io.Writer, gs graphSet) error {
	for _, g := range gs.sortedGraphs() {
		ts := append([]rdf.Triple(nil), gs[g]...)
		rdf.SortTriples(ts)
		for _, t := range ts {
			q := rdf.Quad{Triple: t, Graph: g}
			if _, err := io.WriteString(w, q.NQuads()); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeTurtle emits a prefix header followed by full-IRI statements.
// Full IRIs are valid Turtle; the header lets downstream tools
// abbreviate on re-serialization.
func writeTurtle(w io.Writer, gs graphSet) error {
	prefixes := vocabulary.StandardPrefixes()
	names := make([]string, 0, len(prefixes))
	for p := range prefixes {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		if _, err := fmt.Fprintf(w, "@prefix %s: <%s> .\n", p, prefixes[p]); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return writeNTriples(w, gs)
}

func writeNTriples(w io.Writer, gs graphSet) error {
	for _, g := range gs.sortedGraphs() {
		ts := append([]rdf.Triple(nil), gs[g]...)
		rdf.SortTriples(ts)
		for _, t := range ts {
			if _, err := io.WriteString(w, t.NTriples()); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeRDFXML emits one rdf:Description per subject with a locally
// declared namespace per property element, the way generic RDF/XML
// serializers do when no prefix table is at hand.
func writeRDFXML(w io.Writer, gs graphSet) error {
	if _, err := io.WriteString(w, xmlHeader); err != nil {
		return err
	}
	for _, g := range gs.sortedGraphs() {
		ts := append([]rdf.Triple(nil), gs[g]...)
		rdf.SortTriples(ts)

		var current rdf.IRI
		open := false
		for _, t := range ts {
			if t.Subject != current {
				if open {
					if _, err := io.WriteString(w, "  </rdf:Description>\n"); err != nil {
						return err
					}
				}
				current = t.Subject
				open = true
				if _, err := fmt.Fprintf(w, "  <rdf:Description rdf:about=%q>\n", string(t.Subject)); err != nil {
					return err
				}
			}
			if err := writeXMLProperty(w, t); err != nil {
				return err
			}
		}
		if open {
			if _, err := io.WriteString(w, "  </rdf:Description>\n"); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "</rdf:RDF>\n")
	return err
}

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
`

func writeXMLProperty(w io.Writer, t rdf.Triple) error {
	ns, local := splitIRI(string(t.Predicate))
	obj := t.Object
	switch {
	case obj.IsIRI():
		_, err := fmt.Fprintf(w, "    <ns0:%s xmlns:ns0=%q rdf:resource=%q/>\n", local, ns, obj.Value)
		return err
	case obj.Lang != "":
		_, err := fmt.Fprintf(w, "    <ns0:%s xmlns:ns0=%q xml:lang=%q>%s</ns0:%s>\n",
			local, ns, obj.Lang, xmlEscape(obj.Value), local)
		return err
	case obj.Datatype != "":
		_, err := fmt.Fprintf(w, "    <ns0:%s xmlns:ns0=%q rdf:datatype=%q>%s</ns0:%s>\n",
			local, ns, string(obj.Datatype), xmlEscape(obj.Value), local)
		return err
	}
	_, err := fmt.Fprintf(w, "    <ns0:%s xmlns:ns0=%q>%s</ns0:%s>\n", local, ns, xmlEscape(obj.Value), local)
	return err
}

// splitIRI breaks a predicate IRI into namespace and XML-safe local name
// at the last '#' or '/'.
func splitIRI(iri string) (ns, local string) {
	idx := strings.LastIndexAny(iri, "#/")
	if idx < 0 || idx == len(iri)-1 {
		return iri, "value"
	}
	return iri[:idx+1], iri[idx+1:]
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}
