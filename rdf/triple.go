package rdf

import (
	"sort"
	"strings"
)

// Triple is one subject-predicate-object statement.
type Triple struct {
	Subject   IRI
	Predicate IRI
	Object    Object
}

// Quad is a triple tagged with the named graph it belongs to.
type Quad struct {
	Triple
	Graph IRI
}

// NTriples serializes the triple in N-Triples form, newline included.
func (t Triple) NTriples() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(string(t.Subject))
	b.WriteString("> <")
	b.WriteString(string(t.Predicate))
	b.WriteString("> ")
	b.WriteString(t.Object.NTriples())
	b.WriteString(" .\n")
	return b.String()
}

// NQuads serializes the quad in N-Quads form, newline included.
func (q Quad) NQuads() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(string(q.Subject))
	b.WriteString("> <")
	b.WriteString(string(q.Predicate))
	b.WriteString("> ")
	b.WriteString(q.Object.NTriples())
	if q.Graph != "" {
		b.WriteString(" <")
		b.WriteString(string(q.Graph))
		b.WriteString(">")
	}
	b.WriteString(" .\n")
	return b.String()
}

// NTriples serializes the object term.
func (o Object) NTriples() string {
	if o.Kind == TermIRI {
		return "<" + o.Value + ">"
	}
	var b strings.Builder
	b.WriteString(`"`)
	b.WriteString(escapeLiteral(o.Value))
	b.WriteString(`"`)
	switch {
	case o.Lang != "":
		b.WriteString("@")
		b.WriteString(o.Lang)
	case o.Datatype != "":
		b.WriteString("^^<")
		b.WriteString(string(o.Datatype))
		b.WriteString(">")
	}
	return b.String()
}

func escapeLiteral(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(s)
}

// SortTriples orders triples by subject, predicate, then object serialization.
// Used to make batch comparisons and serializations deterministic.
func SortTriples(ts []Triple) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Subject != ts[j].Subject {
			return ts[i].Subject < ts[j].Subject
		}
		if ts[i].Predicate != ts[j].Predicate {
			return ts[i].Predicate < ts[j].Predicate
		}
		return ts[i].Object.NTriples() < ts[j].Object.NTriples()
	})
}

// Dedupe returns ts with exact duplicate triples removed, preserving first
// occurrence order.
func Dedupe(ts []Triple) []Triple {
	seen := make(map[Triple]struct{}, len(ts))
	out := ts[:0]
	for _, t := range ts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
