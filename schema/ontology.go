package schema

import (
	"fmt"
	"sort"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary"
	"github.com/ch-sander/zotero-rdf-server/vocabulary/zotero"
)

// Ontology builds the OWL graph for the schema under the given vocabulary
// namespace. Item types and creator types are visited in sorted order and
// union domains use deterministic list-node IRIs, so the same schema
// always yields the same graph.
func (s *Schema) Ontology(vocab string) []rdf.Triple {
	b := &ontologyBuilder{vocab: vocab, schema: s}
	return b.build()
}

type ontologyBuilder struct {
	vocab  string
	schema *Schema
	out    []rdf.Triple
}

func (b *ontologyBuilder) build() []rdf.Triple {
	b.class(zotero.ClassItem, "Item", "")
	b.class(zotero.ClassCollection, "Collection", "")
	b.class(zotero.ClassCreatorRole, "Creator role", "")
	b.class(zotero.ClassPerson, "Person", "")
	b.class(zotero.ClassTag, "Tag", "")

	// field name -> item type classes that carry it
	fieldDomains := make(map[string][]rdf.IRI)
	// field name -> base field, when the schema declares one
	baseFields := make(map[string]string)
	creatorTypes := make(map[string]bool)

	types := append([]ItemType(nil), b.schema.ItemTypes...)
	sort.Slice(types, func(i, j int) bool { return types[i].ItemType < types[j].ItemType })

	for _, it := range types {
		classIRI := b.class(it.ItemType, b.schema.label("itemType", it.ItemType), zotero.ClassItem)
		for _, f := range it.Fields {
			fieldDomains[f.Field] = append(fieldDomains[f.Field], classIRI)
			if f.BaseField != "" {
				baseFields[f.Field] = f.BaseField
			}
		}
		for _, ct := range it.CreatorTypes {
			creatorTypes[ct.CreatorType] = true
		}
	}

	fields := make([]string, 0, len(fieldDomains))
	for f := range fieldDomains {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		b.fieldProperty(f, fieldDomains[f], baseFields[f])
	}

	roles := make([]string, 0, len(creatorTypes))
	for r := range creatorTypes {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	for _, r := range roles {
		b.class(r, b.schema.label("creatorType", r), zotero.ClassCreatorRole)
	}

	return rdf.Dedupe(b.out)
}

// class emits an owl:Class with a label and optional superclass, returning
// its IRI.
func (b *ontologyBuilder) class(token, label, super string) rdf.IRI {
	iri := b.iri(token)
	b.add(iri, vocabulary.RdfType, rdf.IRIObject(vocabulary.OwlClass))
	if label != "" {
		b.add(iri, vocabulary.RdfsLabel, rdf.LangLiteral(label, "en"))
	}
	if super != "" {
		b.add(iri, vocabulary.RdfsSubClassOf, rdf.IRIObject(b.iri(super)))
	}
	return iri
}

// fieldProperty emits an owl:DatatypeProperty whose domain is the single
// carrying class, or an owl:unionOf class over all of them.
func (b *ontologyBuilder) fieldProperty(field string, domains []rdf.IRI, baseField string) {
	prop := b.iri(field)
	b.add(prop, vocabulary.RdfType, rdf.IRIObject(vocabulary.OwlDatatypeProperty))
	b.add(prop, vocabulary.RdfsLabel, rdf.LangLiteral(b.schema.label("field", field), "en"))
	b.add(prop, vocabulary.RdfsRange, rdf.IRIObject(vocabulary.RdfsLiteral))
	if baseField != "" {
		b.add(prop, vocabulary.OwlEquivalentProperty, rdf.IRIObject(b.iri(baseField)))
	}

	switch len(domains) {
	case 0:
	case 1:
		b.add(prop, vocabulary.RdfsDomain, rdf.IRIObject(domains[0]))
	default:
		union := b.iri("domain/" + field)
		b.add(prop, vocabulary.RdfsDomain, rdf.IRIObject(union))
		b.add(union, vocabulary.RdfType, rdf.IRIObject(vocabulary.OwlClass))
		b.add(union, vocabulary.OwlUnionOf, rdf.IRIObject(b.list("domain/"+field, domains)))
	}
}

// list emits an rdf:List of members under deterministic node IRIs derived
// from the seed, returning the head.
func (b *ontologyBuilder) list(seed string, members []rdf.IRI) rdf.IRI {
	head := vocabulary.RdfNil
	nodes := make([]rdf.IRI, len(members))
	for i := range members {
		nodes[i] = b.iri(fmt.Sprintf("%s/list/%d", seed, i))
	}
	for i := len(members) - 1; i >= 0; i-- {
		rest := rdf.IRI(head)
		b.add(nodes[i], vocabulary.RdfFirst, rdf.IRIObject(members[i]))
		b.add(nodes[i], vocabulary.RdfRest, rdf.IRIObject(rest))
		head = string(nodes[i])
	}
	return rdf.IRI(head)
}

func (b *ontologyBuilder) iri(token string) rdf.IRI {
	return rdf.IRI(b.vocab + token)
}

func (b *ontologyBuilder) add(s rdf.IRI, p string, o rdf.Object) {
	b.out = append(b.out, rdf.Triple{Subject: s, Predicate: rdf.IRI(p), Object: o})
}
