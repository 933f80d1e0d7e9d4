package mapping

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ch-sander/zotero-rdf-server/assemble"
	"github.com/ch-sander/zotero-rdf-server/identity"
	"github.com/ch-sander/zotero-rdf-server/normalize"
	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary"
	"github.com/ch-sander/zotero-rdf-server/vocabulary/zotero"
)

// Mapper turns canonical records into graph-tagged triples under one
// library's rule set. Safe for concurrent use: all mutable state lives in
// the identity resolver, which locks internally.
type Mapper struct {
	rules RuleSet
	ids   *identity.Resolver
	now   func() time.Time
}

// NewMapper creates a mapper. now is injectable for tests; nil means
// time.Now.
func NewMapper(rules RuleSet, ids *identity.Resolver, now func() time.Time) *Mapper {
	if now == nil {
		now = time.Now
	}
	return &Mapper{rules: rules, ids: ids, now: now}
}

// MapRecord maps one record. The same record under the same rule set
// always yields the same triples in the same order: fields are visited in
// sorted name order and list values in source order.
func (m *Mapper) MapRecord(rec normalize.Record) []assemble.Staged {
	out := make([]assemble.Staged, 0, 16)
	subject := m.subject(rec)

	out = append(out, m.typeTriples(subject, rec)...)
	out = append(out, m.labelTriple(subject, rec)...)

	for _, name := range sortedFieldNames(rec) {
		val, ok := rec.Field(name)
		if !ok || !m.rules.Emitted(name) {
			continue
		}
		if m.rules.Structured(name) {
			out = append(out, m.structuredTriples(subject, rec, name, val)...)
			continue
		}
		out = append(out, m.plainTriples(subject, name, val)...)
	}

	out = append(out, m.additionalTriples(subject, rec)...)

	if m.rules.NamedLibrary != "" {
		out = append(out, stage(subject, m.rules.NamedLibrary, rdf.IRIObject(m.rules.GraphIRI)))
	}

	out = append(out, stage(subject, vocabulary.ProvGeneratedAtTime,
		rdf.TypedLiteral(m.now().UTC().Format(time.RFC3339), vocabulary.XSDDateTime)))

	return out
}

func (m *Mapper) subject(rec normalize.Record) rdf.IRI {
	role := zotero.RoleItem
	if rec.Kind == normalize.KindCollection {
		role = zotero.RoleCollection
	}
	return m.ids.Resolve(role, rec.Key)
}

// typeTriples applies the type rules: constants assert their class
// directly, field rules read the class name(s) from the record, splitting
// on commas so a single field can carry several classes. With no rule
// configured the record gets the generic item or collection class.
func (m *Mapper) typeTriples(subject rdf.IRI, rec normalize.Record) []assemble.Staged {
	rules := m.rules.ItemType
	fallback := zotero.ClassItem
	if rec.Kind == normalize.KindCollection {
		rules = m.rules.CollectionType
		fallback = zotero.ClassCollection
	}

	var out []assemble.Staged
	for _, rule := range rules {
		tokens := []string{rule.Constant}
		if rule.Field != "" {
			raw := rec.FieldScalar(rule.Field)
			if raw == "" && rule.Field == zotero.FieldItemType {
				raw = rec.RawType
			}
			if raw == "" {
				continue
			}
			tokens = strings.Split(raw, ",")
		}
		for _, tok := range tokens {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			out = append(out, stage(subject, vocabulary.RdfType, rdf.IRIObject(m.classIRI(tok))))
		}
	}
	if out == nil {
		out = append(out, stage(subject, vocabulary.RdfType, rdf.IRIObject(m.classIRI(fallback))))
	}
	return out
}

// labelTriple builds the human-facing rdfs:label. Items follow the
// citation-style "Lastname: Title (Date)" form; collections use their
// name.
func (m *Mapper) labelTriple(subject rdf.IRI, rec normalize.Record) []assemble.Staged {
	label := ""
	switch rec.Kind {
	case normalize.KindCollection:
		label = rec.FieldScalar(zotero.FieldName)
	case normalize.KindItem:
		label = itemLabel(rec)
	}
	if label == "" {
		return nil
	}
	return []assemble.Staged{stage(subject, vocabulary.RdfsLabel, rdf.Literal(label))}
}

func itemLabel(rec normalize.Record) string {
	title := rec.FieldScalar(zotero.FieldTitle)
	var b strings.Builder
	if last := firstCreatorLastName(rec); last != "" {
		b.WriteString(last)
		b.WriteString(": ")
	}
	b.WriteString(title)
	if date := rec.FieldScalar(zotero.FieldDate); date != "" {
		fmt.Fprintf(&b, " (%s)", date)
	}
	return strings.TrimSpace(b.String())
}

func firstCreatorLastName(rec normalize.Record) string {
	val, ok := rec.Field(zotero.FieldCreators)
	if !ok || val.Kind != normalize.Objects || len(val.Objects) == 0 {
		return ""
	}
	first := val.Objects[0]
	if last := first["lastName"]; last != "" {
		return last
	}
	return first["name"]
}

// plainTriples emits a field as literals, one triple per value, with the
// datatype rules applied per value.
func (m *Mapper) plainTriples(subject rdf.IRI, name string, val normalize.Value) []assemble.Staged {
	pred := m.fieldPredicate(name)
	var out []assemble.Staged
	for _, s := range scalarValues(val) {
		if s == "" {
			continue
		}
		out = append(out, stage(subject, pred, objectFor(name, s)))
	}
	return out
}

// structuredTriples dispatches the fields with relational meaning.
func (m *Mapper) structuredTriples(subject rdf.IRI, rec normalize.Record, name string, val normalize.Value) []assemble.Staged {
	switch name {
	case zotero.FieldTags:
		return m.tagTriples(subject, val)
	case zotero.FieldCreators:
		return m.creatorTriples(subject, rec, val)
	case zotero.FieldCollections:
		return m.refTriples(subject, name, zotero.RoleCollection, val)
	case zotero.FieldParentItem:
		return m.refTriples(subject, name, zotero.RoleItem, val)
	case zotero.FieldParentCollection:
		return m.refTriples(subject, name, zotero.RoleCollection, val)
	}
	return m.entityTriples(subject, name, val)
}

// tagTriples links the subject to one shared tag node per tag. The tag's
// own identity and label triples go to the knowledge-base graph; when a
// later label fuzzily folds into an earlier one, the divergent surface
// form is kept as skos:altLabel.
func (m *Mapper) tagTriples(subject rdf.IRI, val normalize.Value) []assemble.Staged {
	var out []assemble.Staged
	pred := m.fieldPredicate(zotero.FieldTags)
	for _, label := range tagLabels(val) {
		if label == "" {
			continue
		}
		node, canonical := m.ids.ResolveShared(zotero.RoleTag, label)
		out = append(out, stage(subject, pred, rdf.IRIObject(node)))
		out = append(out,
			stageKB(node, vocabulary.RdfType, rdf.IRIObject(m.classIRI(zotero.ClassTag))),
			stageKB(node, vocabulary.RdfsLabel, rdf.Literal(canonical)),
		)
		if canonical != label {
			out = append(out, stageKB(node, vocabulary.SkosAltLabel, rdf.Literal(label)))
		}
	}
	return out
}

func tagLabels(val normalize.Value) []string {
	switch val.Kind {
	case normalize.Objects:
		labels := make([]string, 0, len(val.Objects))
		for _, o := range val.Objects {
			labels = append(labels, o["tag"])
		}
		return labels
	case normalize.List:
		return val.List
	case normalize.Scalar:
		return []string{val.Scalar}
	}
	return nil
}

// creatorTriples materializes each creator as a role node owned by the
// item plus a shared person node. The role node IRI is derived from the
// item key and the creator's position, so re-runs mint the same node and
// the ordering of authors survives in the IRI.
func (m *Mapper) creatorTriples(subject rdf.IRI, rec normalize.Record, val normalize.Value) []assemble.Staged {
	if val.Kind != normalize.Objects {
		return nil
	}
	var out []assemble.Staged
	pred := m.fieldPredicate(zotero.FieldCreators)
	personPred := m.fieldPredicate(zotero.ClassPerson)
	for i, creator := range val.Objects {
		label := creatorLabel(creator)
		if label == "" {
			continue
		}
		roleNode := m.ids.Resolve("creatorRoles", fmt.Sprintf("%s-%d", rec.Key, i))
		roleClass := zotero.ClassCreatorRole
		if ct := creator["creatorType"]; ct != "" {
			roleClass = ct
		}
		person, canonical := m.ids.ResolveShared(zotero.RolePerson, label)

		out = append(out,
			stage(subject, pred, rdf.IRIObject(roleNode)),
			stage(roleNode, vocabulary.RdfType, rdf.IRIObject(m.classIRI(roleClass))),
			stage(roleNode, personPred, rdf.IRIObject(person)),
			stageKB(person, vocabulary.RdfType, rdf.IRIObject(m.classIRI(zotero.ClassPerson))),
			stageKB(person, vocabulary.RdfsLabel, rdf.Literal(canonical)),
		)
		if canonical != label {
			out = append(out, stageKB(person, vocabulary.SkosAltLabel, rdf.Literal(label)))
		}
	}
	return out
}

func creatorLabel(c normalize.Object) string {
	if c["name"] != "" {
		return c["name"]
	}
	last, first := c["lastName"], c["firstName"]
	switch {
	case last != "" && first != "":
		return last + ", " + first
	case last != "":
		return last
	default:
		return first
	}
}

// refTriples links the subject to other records of this library by key.
// A "false" marker (Zotero's way of saying "no parent") is skipped.
func (m *Mapper) refTriples(subject rdf.IRI, name, role string, val normalize.Value) []assemble.Staged {
	pred := m.fieldPredicate(name)
	var out []assemble.Staged
	for _, key := range scalarValues(val) {
		if key == "" || key == "false" {
			continue
		}
		out = append(out, stage(subject, pred, rdf.IRIObject(m.ids.Resolve(role, key))))
	}
	return out
}

// entityTriples maps a configured entity field (place, publisher, ...) to
// shared nodes, one per ";"-separated value.
func (m *Mapper) entityTriples(subject rdf.IRI, name string, val normalize.Value) []assemble.Staged {
	pred := m.fieldPredicate(name)
	class := m.classIRI(name)
	var out []assemble.Staged
	for _, raw := range scalarValues(val) {
		for _, label := range strings.Split(raw, ";") {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			node, canonical := m.ids.ResolveShared(name, label)
			out = append(out, stage(subject, pred, rdf.IRIObject(node)))
			out = append(out,
				stageKB(node, vocabulary.RdfType, rdf.IRIObject(class)),
				stageKB(node, vocabulary.RdfsLabel, rdf.Literal(canonical)),
			)
			if canonical != label {
				out = append(out, stageKB(node, vocabulary.SkosAltLabel, rdf.Literal(label)))
			}
		}
	}
	return out
}

func (m *Mapper) additionalTriples(subject rdf.IRI, rec normalize.Record) []assemble.Staged {
	var out []assemble.Staged
	for _, rule := range m.rules.Additional {
		values := []string{rule.Constant}
		if rule.Field != "" {
			val, ok := rec.Field(rule.Field)
			if !ok {
				continue
			}
			values = scalarValues(val)
		}
		for _, v := range values {
			if v == "" {
				continue
			}
			v = rule.Prefix + v
			if rule.NamedNode {
				out = append(out, stage(subject, rule.Predicate, rdf.IRIObject(rdf.CoerceIRI(v))))
			} else {
				out = append(out, stage(subject, rule.Predicate, rdf.Literal(v)))
			}
		}
	}
	return out
}

// fieldPredicate mints the predicate for a source field under the
// vocabulary namespace. Field names with spaces are segment-encoded.
func (m *Mapper) fieldPredicate(name string) rdf.IRI {
	return rdf.IRI(m.rules.Vocab + rdf.EncodeSegment(name))
}

// classIRI expands a class token: absolute IRIs pass through, bare tokens
// go under the vocabulary namespace.
func (m *Mapper) classIRI(token string) rdf.IRI {
	if rdf.IsAbsoluteIRI(token) {
		return rdf.CoerceIRI(token)
	}
	return rdf.IRI(m.rules.Vocab + rdf.EncodeSegment(token))
}

func scalarValues(val normalize.Value) []string {
	switch val.Kind {
	case normalize.Scalar:
		return []string{val.Scalar}
	case normalize.List:
		return val.List
	}
	return nil
}

func sortedFieldNames(rec normalize.Record) []string {
	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		switch name {
		case zotero.FieldKey, zotero.FieldItemType:
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stage(s, p rdf.IRI, o rdf.Object) assemble.Staged {
	return assemble.Staged{
		Triple: rdf.Triple{Subject: s, Predicate: p, Object: o},
		Target: assemble.TargetLibrary,
	}
}

func stageKB(s, p rdf.IRI, o rdf.Object) assemble.Staged {
	return assemble.Staged{
		Triple: rdf.Triple{Subject: s, Predicate: p, Object: o},
		Target: assemble.TargetKnowledgeBase,
	}
}
