// Package vocabulary provides the standard W3C IRIs used across the
// mapping engine. Source-specific vocabularies live in subpackages.
package vocabulary

// RDF and RDF Schema
const (
	RdfType  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RdfFirst = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	RdfRest  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	RdfNil   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"

	RdfsLabel      = "http://www.w3.org/2000/01/rdf-schema#label"
	RdfsSubClassOf = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
	RdfsDomain     = "http://www.w3.org/2000/01/rdf-schema#domain"
	RdfsRange      = "http://www.w3.org/2000/01/rdf-schema#range"
	RdfsLiteral    = "http://www.w3.org/2000/01/rdf-schema#Literal"
)

// OWL (Web Ontology Language)
const (
	OwlClass              = "http://www.w3.org/2002/07/owl#Class"
	OwlDatatypeProperty   = "http://www.w3.org/2002/07/owl#DatatypeProperty"
	OwlObjectProperty     = "http://www.w3.org/2002/07/owl#ObjectProperty"
	OwlUnionOf            = "http://www.w3.org/2002/07/owl#unionOf"
	OwlEquivalentProperty = "http://www.w3.org/2002/07/owl#equivalentProperty"
	OwlSameAs             = "http://www.w3.org/2002/07/owl#sameAs"
)

// SKOS labels. Every shared entity carries its seen surface forms as
// skos:altLabel so fuzzy matching stays inspectable in the data.
const (
	SkosPrefLabel = "http://www.w3.org/2004/02/skos/core#prefLabel"
	SkosAltLabel  = "http://www.w3.org/2004/02/skos/core#altLabel"
)

// PROV-O
const (
	ProvGeneratedAtTime = "http://www.w3.org/ns/prov#generatedAtTime"
)

// XSD namespace and the datatype IRIs the mapper emits.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	XSDInteger   = XSDNamespace + "integer"
	XSDDateTime  = XSDNamespace + "dateTime"
	XSDDate      = XSDNamespace + "date"
	XSDGYear     = XSDNamespace + "gYear"
	XSDBoolean   = XSDNamespace + "boolean"
)

// StandardPrefixes maps the conventional prefix names to their namespaces,
// used for export serializations.
func StandardPrefixes() map[string]string {
	return map[string]string{
		"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		"owl":  "http://www.w3.org/2002/07/owl#",
		"xsd":  XSDNamespace,
		"skos": "http://www.w3.org/2004/02/skos/core#",
		"prov": "http://www.w3.org/ns/prov#",
	}
}
