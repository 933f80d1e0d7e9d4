// Package rdf provides the RDF value types used throughout the server:
// IRIs, literals, triples and graph-tagged quads. These are pure value
// types; storage and querying belong to the store gateway.
package rdf

import (
	"fmt"
	"net/url"
	"strings"
)

// IRI is an internationalized resource identifier in absolute form.
type IRI string

// String returns the IRI without angle brackets.
func (i IRI) String() string { return string(i) }

// SyntheticPrefix is the namespace used when a value that must become an
// IRI cannot be parsed as one. The original value survives percent-encoded
// in the path so nothing is silently dropped.
const SyntheticPrefix = "http://internal.invalid/"

// ParseIRI validates s as an absolute IRI.
func ParseIRI(s string) (IRI, error) {
	if !IsAbsoluteIRI(s) {
		return "", fmt.Errorf("not an absolute IRI: %q", s)
	}
	return IRI(encodeIRI(s)), nil
}

// CoerceIRI always yields a usable IRI. Values without a scheme are
// percent-encoded under SyntheticPrefix rather than rejected, matching the
// permissive handling of source data elsewhere in the pipeline.
func CoerceIRI(s string) IRI {
	if iri, err := ParseIRI(s); err == nil {
		return iri
	}
	return IRI(SyntheticPrefix + url.QueryEscape(s))
}

// IsAbsoluteIRI reports whether s has a URI scheme and no embedded
// whitespace.
func IsAbsoluteIRI(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n\r") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != ""
}

// encodeIRI percent-encodes the characters that are illegal in an IRI while
// leaving the delimiters intact.
func encodeIRI(s string) string {
	const keep = ":/#?&=%+~@!$'()*,;[]-._"
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(keep, r):
			b.WriteRune(r)
		case r > 127:
			// IRIs permit non-ASCII directly.
			b.WriteRune(r)
		default:
			b.WriteString(url.QueryEscape(string(r)))
		}
	}
	return b.String()
}

// EncodeSegment percent-encodes s for use as a single IRI path segment.
func EncodeSegment(s string) string {
	return url.PathEscape(s)
}

// TermKind discriminates the object position of a triple.
type TermKind int

const (
	// TermIRI marks an object that references another node.
	TermIRI TermKind = iota
	// TermLiteral marks a plain, typed or language-tagged literal.
	TermLiteral
)

// Object is the object position of a triple: an IRI reference or a literal.
type Object struct {
	Kind     TermKind
	Value    string
	Datatype IRI
	Lang     string
}

// IRIObject wraps an IRI reference as a triple object.
func IRIObject(i IRI) Object { return Object{Kind: TermIRI, Value: string(i)} }

// Literal returns a plain string literal object.
func Literal(v string) Object { return Object{Kind: TermLiteral, Value: v} }

// TypedLiteral returns a literal with an XSD (or other) datatype.
func TypedLiteral(v string, datatype IRI) Object {
	return Object{Kind: TermLiteral, Value: v, Datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(v, lang string) Object {
	return Object{Kind: TermLiteral, Value: v, Lang: lang}
}

// IsIRI reports whether the object is a node reference.
func (o Object) IsIRI() bool { return o.Kind == TermIRI }

// IRI returns the object as an IRI. Only meaningful when IsIRI is true.
func (o Object) IRI() IRI { return IRI(o.Value) }

// Equal reports deep equality of two objects.
func (o Object) Equal(other Object) bool { return o == other }
