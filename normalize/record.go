// Package normalize converts raw source records into the canonical shape
// the triple mapper consumes. Three source shapes are supported: Zotero API
// JSON (items and collections), parsed RDF statements, and per-item
// statements from manually supplied RDF files. Normalization is pure; a
// record that cannot yield a stable key and kind is reported as malformed
// and skipped, never fatal to its batch.
package normalize

import "errors"

// ErrMalformedRecord marks a single unusable record. Callers skip the
// record and continue the batch.
var ErrMalformedRecord = errors.New("malformed record")

// Kind discriminates items from collections.
type Kind string

// Record kinds.
const (
	KindItem       Kind = "item"
	KindCollection Kind = "collection"
)

// ValueKind discriminates the shapes a field value can take.
type ValueKind int

const (
	// Scalar is a single string-coerced value.
	Scalar ValueKind = iota
	// List is a list of string-coerced values.
	List
	// Objects is a list of nested objects (creators, tags).
	Objects
)

// Object is a nested source object flattened to string fields.
type Object map[string]string

// Value is one field's value on a canonical record.
type Value struct {
	Kind    ValueKind
	Scalar  string
	List    []string
	Objects []Object
}

// ScalarValue wraps a single string.
func ScalarValue(s string) Value { return Value{Kind: Scalar, Scalar: s} }

// ListValue wraps a list of strings.
func ListValue(l []string) Value { return Value{Kind: List, List: l} }

// ObjectsValue wraps nested objects.
func ObjectsValue(o []Object) Value { return Value{Kind: Objects, Objects: o} }

// Empty reports whether the value carries no content.
func (v Value) Empty() bool {
	switch v.Kind {
	case Scalar:
		return v.Scalar == ""
	case List:
		return len(v.List) == 0
	case Objects:
		return len(v.Objects) == 0
	}
	return true
}

// Record is the canonical, source-independent view of one item or
// collection.
type Record struct {
	// Kind is item or collection.
	Kind Kind
	// Key is the stable library-scoped source key.
	Key string
	// RawType is the source-reported type discriminator (e.g. "book").
	RawType string
	// Fields maps source field names to values.
	Fields map[string]Value

	// Library carries the source library metadata from the record
	// envelope, when the source provides one.
	Library Object
	// LibraryHref is the source library's own URL from the envelope.
	LibraryHref string
}

// Field returns the named field's value and whether it is present and
// non-empty.
func (r Record) Field(name string) (Value, bool) {
	v, ok := r.Fields[name]
	if !ok || v.Empty() {
		return Value{}, false
	}
	return v, true
}

// FieldScalar returns the named field coerced to a single string: the
// scalar itself, or the first list element.
func (r Record) FieldScalar(name string) string {
	v, ok := r.Field(name)
	if !ok {
		return ""
	}
	switch v.Kind {
	case Scalar:
		return v.Scalar
	case List:
		return v.List[0]
	}
	return ""
}
