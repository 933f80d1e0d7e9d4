package normalize

import (
	"strings"

	knakk "github.com/knakk/rdf"

	"github.com/ch-sander/zotero-rdf-server/vocabulary"
)

// RecordsFromStatements groups parsed RDF statements by subject and
// converts each subject's statements into one canonical record. Blank-node
// subjects are skipped: without a stable source key they cannot survive a
// refresh. Statement order does not affect the result beyond list ordering
// within one predicate.
func RecordsFromStatements(triples []knakk.Triple) []Record {
	bySubject := make(map[string][]knakk.Triple)
	var order []string
	for _, t := range triples {
		if t.Subj.Type() != knakk.TermIRI {
			continue
		}
		s := t.Subj.String()
		if _, seen := bySubject[s]; !seen {
			order = append(order, s)
		}
		bySubject[s] = append(bySubject[s], t)
	}

	records := make([]Record, 0, len(order))
	for _, subj := range order {
		if rec, err := recordFromSubject(subj, bySubject[subj]); err == nil {
			records = append(records, rec)
		}
	}
	return records
}

func recordFromSubject(subject string, triples []knakk.Triple) (Record, error) {
	key := iriTail(subject)
	if key == "" {
		return Record{}, ErrMalformedRecord
	}
	rec := Record{
		Kind:   KindItem,
		Key:    key,
		Fields: make(map[string]Value),
	}
	for _, t := range triples {
		pred := t.Pred.String()
		local := localName(pred)
		if pred == vocabulary.RdfType {
			typeName := localName(t.Obj.String())
			rec.RawType = typeName
			if strings.EqualFold(typeName, "collection") {
				rec.Kind = KindCollection
			}
			continue
		}
		obj := t.Obj.String()
		if obj == "" {
			continue
		}
		appendField(rec.Fields, local, obj)
	}
	return rec, nil
}

func appendField(fields map[string]Value, name, value string) {
	existing, ok := fields[name]
	if !ok {
		fields[name] = ScalarValue(value)
		return
	}
	switch existing.Kind {
	case Scalar:
		fields[name] = ListValue([]string{existing.Scalar, value})
	case List:
		existing.List = append(existing.List, value)
		fields[name] = existing
	}
}

// iriTail returns the last path or fragment segment of an IRI.
func iriTail(iri string) string {
	s := strings.TrimRight(iri, "/#")
	if i := strings.LastIndexAny(s, "/#"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// localName strips a namespace prefix ending in '#' or '/' from a
// predicate or class IRI.
func localName(iri string) string {
	return iriTail(iri)
}
