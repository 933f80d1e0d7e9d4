// Package mapping compiles a library's raw rule block into an effective
// rule set and applies it to canonical records, producing graph-tagged RDF
// triples. The rule set is built once per library at resolution time;
// nothing here re-reads configuration per record.
package mapping

import (
	"fmt"
	"strings"

	"github.com/ch-sander/zotero-rdf-server/config"
	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary/zotero"
)

// TypeRule derives one rdf:type assertion: either a constant class token
// or a field whose value names the class.
type TypeRule struct {
	Constant string
	Field    string
}

// AdditionalRule attaches one configured extra triple to every subject.
type AdditionalRule struct {
	Predicate rdf.IRI
	Constant  string
	Field     string
	Prefix    string
	NamedNode bool
}

// RuleSet is the effective, fully resolved mapping configuration for one
// library.
type RuleSet struct {
	// Vocab is the namespace bare tokens expand against.
	Vocab string
	// GraphIRI is the library's named graph.
	GraphIRI rdf.IRI
	// KnowledgeBase routes shared-entity triples to a separate graph.
	KnowledgeBase bool

	// White is the field allow-list; when non-empty only these fields
	// (plus structured fields) are emitted and Black is not consulted.
	White map[string]bool
	// Black is the deny-list, consulted only when White is empty.
	Black map[string]bool
	// Entity marks fields whose values resolve to shared entities rather
	// than literals.
	Entity map[string]bool

	ItemType       []TypeRule
	CollectionType []TypeRule
	Additional     []AdditionalRule

	// NamedLibrary is the back-link predicate, empty when disabled.
	NamedLibrary rdf.IRI
}

// defaultEntityFields are treated as shared entities when no rdf_mapping
// list is configured, matching upstream behavior.
var defaultEntityFields = []string{"place", "publisher", "series"}

// Compile resolves one library's rule block against the context. Rule
// problems are reported eagerly, wrapped in config.ErrInvalidRules, so a
// misconfigured library fails at startup instead of mid-refresh.
func Compile(ctx config.Context, lib config.Library) (RuleSet, error) {
	rs := RuleSet{
		Vocab:         ctx.Vocab,
		GraphIRI:      rdf.IRI(lib.GraphIRI(ctx)),
		KnowledgeBase: lib.KnowledgeBaseEnabled(),
		White:         toSet(lib.Map.White),
		Black:         toSet(lib.Map.Black),
		Entity:        toSet(lib.Map.RDFMapping),
	}
	if len(lib.Map.RDFMapping) == 0 {
		rs.Entity = toSet(defaultEntityFields)
	}

	var err error
	if rs.ItemType, err = compileTypeRules(lib.Map.ItemType); err != nil {
		return RuleSet{}, fmt.Errorf("%w: item_type: %v", config.ErrInvalidRules, err)
	}
	if rs.CollectionType, err = compileTypeRules(lib.Map.CollectionType); err != nil {
		return RuleSet{}, fmt.Errorf("%w: collection_type: %v", config.ErrInvalidRules, err)
	}

	for _, add := range lib.Map.Additional {
		pred, perr := expand(ctx.Vocab, add.Property)
		if perr != nil {
			return RuleSet{}, fmt.Errorf("%w: additional property %q: %v", config.ErrInvalidRules, add.Property, perr)
		}
		rule := AdditionalRule{Predicate: pred, Prefix: add.Prefix, NamedNode: add.NamedNode}
		if rest, ok := strings.CutPrefix(add.Value, "_"); ok {
			rule.Constant = rest
		} else {
			rule.Field = add.Value
		}
		rs.Additional = append(rs.Additional, rule)
	}

	if lib.Map.NamedLibrary != "" {
		pred, perr := expand(ctx.Vocab, lib.Map.NamedLibrary)
		if perr != nil {
			return RuleSet{}, fmt.Errorf("%w: named_library %q: %v", config.ErrInvalidRules, lib.Map.NamedLibrary, perr)
		}
		rs.NamedLibrary = pred
	}

	return rs, nil
}

func compileTypeRules(tokens []string) ([]TypeRule, error) {
	rules := make([]TypeRule, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			return nil, fmt.Errorf("empty type token")
		}
		if rest, ok := strings.CutPrefix(tok, "_"); ok {
			if rest == "" {
				return nil, fmt.Errorf("constant type token %q has no value", tok)
			}
			rules = append(rules, TypeRule{Constant: rest})
			continue
		}
		rules = append(rules, TypeRule{Field: tok})
	}
	return rules, nil
}

// expand resolves a predicate or class token: absolute IRIs pass through,
// bare tokens are prefixed with the vocabulary namespace.
func expand(vocab, token string) (rdf.IRI, error) {
	if rdf.IsAbsoluteIRI(token) {
		return rdf.ParseIRI(token)
	}
	return rdf.ParseIRI(vocab + token)
}

// Emitted reports whether a plain field passes the allow/deny policy.
// Entity fields bypass the allow-list: they are structural, not content
// selection.
func (rs RuleSet) Emitted(field string) bool {
	if len(rs.White) > 0 {
		return rs.White[field] || rs.Entity[field] || builtinStructured[field]
	}
	return !rs.Black[field]
}

// builtinStructured are the fields with fixed relational meaning that are
// always mapped structurally.
var builtinStructured = map[string]bool{
	zotero.FieldTags:             true,
	zotero.FieldCreators:         true,
	zotero.FieldCollections:      true,
	zotero.FieldParentItem:       true,
	zotero.FieldParentCollection: true,
}

// Structured reports whether the field is mapped to IRI references.
func (rs RuleSet) Structured(field string) bool {
	return builtinStructured[field] || rs.Entity[field]
}

func toSet(list []string) map[string]bool {
	if len(list) == 0 {
		return nil
	}
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}
