package store

import (
	"strings"
	"testing"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary"
)

func testGraphSet() graphSet {
	return graphSet{
		"http://ex/g": {
			{Subject: "http://ex/s", Predicate: "http://ex/p", Object: rdf.Literal("x")},
			{Subject: "http://ex/s", Predicate: vocabulary.RdfType, Object: rdf.IRIObject("http://ex/C")},
		},
	}
}

func render(t *testing.T, format Format, gs graphSet) string {
	t.Helper()
	var b strings.Builder
	if err := serialize(&b, format, gs); err != nil {
		t.Fatalf("serialize %s: %v", format, err)
	}
	return b.String()
}

func TestWriteTriG(t *testing.T) {
	out := render(t, FormatTriG, testGraphSet())
	if !strings.HasPrefix(out, "<http://ex/g> {\n") {
		t.Errorf("missing graph block header:\n%s", out)
	}
	if !strings.Contains(out, "\t<http://ex/s> <http://ex/p> \"x\" .\n") {
		t.Errorf("missing indented statement:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("missing block close:\n%s", out)
	}
}

func TestWriteNQuadsCarriesGraph(t *testing.T) {
	out := render(t, FormatNQuads, testGraphSet())
	if !strings.Contains(out, "\"x\" <http://ex/g> .\n") {
		t.Errorf("quad missing graph term:\n%s", out)
	}
}

func TestWriteTurtleHeader(t *testing.T) {
	out := render(t, FormatTurtle, testGraphSet())
	if !strings.Contains(out, "@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .") {
		t.Errorf("missing rdf prefix:\n%s", out)
	}
	if !strings.Contains(out, "<http://ex/s> <http://ex/p> \"x\" .\n") {
		t.Errorf("missing statement:\n%s", out)
	}
}

func TestWriteRDFXML(t *testing.T) {
	gs := graphSet{
		"http://ex/g": {
			{Subject: "http://ex/s", Predicate: "http://ex/p", Object: rdf.Literal("a <b> & c")},
			{Subject: "http://ex/s", Predicate: "http://ex/q", Object: rdf.IRIObject("http://ex/o")},
		},
	}
	out := render(t, FormatRDFXML, gs)
	for _, want := range []string{
		`<rdf:Description rdf:about="http://ex/s">`,
		`<ns0:p xmlns:ns0="http://ex/">a &lt;b&gt; &amp; c</ns0:p>`,
		`<ns0:q xmlns:ns0="http://ex/" rdf:resource="http://ex/o"/>`,
		"</rdf:RDF>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteRDFXMLTypedLiteral(t *testing.T) {
	gs := graphSet{
		"http://ex/g": {
			{Subject: "http://ex/s", Predicate: "http://ex/date",
				Object: rdf.TypedLiteral("1999", vocabulary.XSDGYear)},
		},
	}
	out := render(t, FormatRDFXML, gs)
	if !strings.Contains(out, `rdf:datatype="http://www.w3.org/2001/XMLSchema#gYear">1999<`) {
		t.Errorf("typed literal not serialized:\n%s", out)
	}
}

func TestSplitIRI(t *testing.T) {
	cases := []struct{ in, ns, local string }{
		{"http://ex/ns#title", "http://ex/ns#", "title"},
		{"http://ex/ns/title", "http://ex/ns/", "title"},
		{"http://ex/ns#", "http://ex/ns#", "value"},
		{"urn:opaque", "urn:opaque", "value"},
	}
	for _, c := range cases {
		ns, local := splitIRI(c.in)
		if ns != c.ns || local != c.local {
			t.Errorf("splitIRI(%q) = %q, %q", c.in, ns, local)
		}
	}
}
