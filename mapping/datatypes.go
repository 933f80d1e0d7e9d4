package mapping

import (
	"regexp"
	"strings"
	"time"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary"
)

// dateTimeFields always carry API timestamps.
var dateTimeFields = map[string]bool{
	"dateAdded":    true,
	"dateModified": true,
	"accessDate":   true,
}

// integerFields carry counts or ordinals.
var integerFields = map[string]bool{
	"numPages":        true,
	"numberOfVolumes": true,
	"volume":          true,
	"series number":   true,
	"seriesNumber":    true,
}

// iriFields carry references that should become IRIs when they look like
// URLs.
var iriFields = map[string]bool{
	"url":      true,
	"relation": true,
	"rights":   true,
}

var (
	yearOnly = regexp.MustCompile(`^\d{4}$`)
	// yearIn matches a plausible publication year inside a free-form date.
	yearIn  = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2}|2100)\b`)
	allNum  = regexp.MustCompile(`^\d+$`)
	isoDate = "2006-01-02"
)

// objectFor applies the datatype rules to one field value: bibliographic
// dates become gYear/date/dateTime literals, counts become integers, DOIs
// and URLs become IRIs, everything else a plain literal.
func objectFor(field, value string) rdf.Object {
	switch {
	case field == "date":
		return dateObject(value)
	case dateTimeFields[field]:
		return rdf.TypedLiteral(value, vocabulary.XSDDateTime)
	case integerFields[field]:
		if allNum.MatchString(value) {
			return rdf.TypedLiteral(value, vocabulary.XSDInteger)
		}
		return rdf.Literal(value)
	case field == "DOI":
		return rdf.IRIObject(doiIRI(value))
	case iriFields[field] && rdf.IsAbsoluteIRI(value):
		return rdf.IRIObject(rdf.CoerceIRI(value))
	}
	return rdf.Literal(value)
}

// dateObject types a free-form bibliographic date. A bare year becomes
// xsd:gYear, a parseable calendar date xsd:date or xsd:dateTime. Anything
// else falls back to a gYear extracted from the text, or a plain literal
// when no year is recognizable, so uncertain dates ("ca. 1630?") never
// produce an invalid typed literal.
func dateObject(value string) rdf.Object {
	v := strings.TrimSpace(value)
	if yearOnly.MatchString(v) {
		return rdf.TypedLiteral(v, vocabulary.XSDGYear)
	}
	if _, err := time.Parse(isoDate, v); err == nil {
		return rdf.TypedLiteral(v, vocabulary.XSDDate)
	}
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return rdf.TypedLiteral(v, vocabulary.XSDDateTime)
	}
	if year := yearIn.FindString(v); year != "" {
		return rdf.TypedLiteral(year, vocabulary.XSDGYear)
	}
	return rdf.Literal(v)
}

// doiIRI resolves a DOI to its https://doi.org/ form unless the value is
// already a URL. The doi: prefix is stripped first: "doi:" is a valid IRI
// scheme, but such values still need resolving.
func doiIRI(value string) rdf.IRI {
	v := strings.TrimPrefix(strings.TrimSpace(value), "doi:")
	if rdf.IsAbsoluteIRI(v) {
		return rdf.CoerceIRI(v)
	}
	return rdf.CoerceIRI("https://doi.org/" + v)
}
