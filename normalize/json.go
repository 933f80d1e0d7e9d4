package normalize

import (
	"fmt"
	"strconv"

	"github.com/ch-sander/zotero-rdf-server/vocabulary/zotero"
)

// FromItemJSON converts one Zotero API item (the full envelope, including
// the "data" block) into a canonical record.
func FromItemJSON(raw map[string]any) (Record, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("%w: item without data block", ErrMalformedRecord)
	}
	key, _ := data[zotero.FieldKey].(string)
	if key == "" {
		return Record{}, fmt.Errorf("%w: item without key", ErrMalformedRecord)
	}
	rec := Record{
		Kind:    KindItem,
		Key:     key,
		RawType: stringify(data[zotero.FieldItemType]),
		Fields:  fieldsFromJSON(data),
	}
	rec.Library, rec.LibraryHref = libraryEnvelope(raw)
	return rec, nil
}

// FromCollectionJSON converts one Zotero API collection envelope into a
// canonical record.
func FromCollectionJSON(raw map[string]any) (Record, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("%w: collection without data block", ErrMalformedRecord)
	}
	key, _ := data[zotero.FieldKey].(string)
	if key == "" {
		return Record{}, fmt.Errorf("%w: collection without key", ErrMalformedRecord)
	}
	rec := Record{
		Kind:   KindCollection,
		Key:    key,
		Fields: fieldsFromJSON(data),
	}
	rec.Library, rec.LibraryHref = libraryEnvelope(raw)
	return rec, nil
}

// fieldsFromJSON flattens one data block. Scalars are stringified, lists of
// scalars stay lists, lists of objects become Objects values, and a lone
// nested object becomes a single-element Objects value. The key field is
// carried through; downstream exclusion rules decide whether it is emitted.
func fieldsFromJSON(data map[string]any) map[string]Value {
	fields := make(map[string]Value, len(data))
	for name, v := range data {
		switch val := v.(type) {
		case nil:
			continue
		case []any:
			if len(val) == 0 {
				continue
			}
			if _, isObj := val[0].(map[string]any); isObj {
				objs := make([]Object, 0, len(val))
				for _, el := range val {
					if m, ok := el.(map[string]any); ok {
						objs = append(objs, flatten(m))
					}
				}
				fields[name] = ObjectsValue(objs)
				continue
			}
			list := make([]string, 0, len(val))
			for _, el := range val {
				if s := stringify(el); s != "" {
					list = append(list, s)
				}
			}
			if len(list) > 0 {
				fields[name] = ListValue(list)
			}
		case map[string]any:
			fields[name] = ObjectsValue([]Object{flatten(val)})
		default:
			if s := stringify(val); s != "" {
				fields[name] = ScalarValue(s)
			}
		}
	}
	return fields
}

func flatten(m map[string]any) Object {
	o := make(Object, len(m))
	for k, v := range m {
		if s := stringify(v); s != "" {
			o[k] = s
		}
	}
	return o
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		// JSON numbers arrive as float64; keep integers clean.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func libraryEnvelope(raw map[string]any) (Object, string) {
	lib, ok := raw["library"].(map[string]any)
	if !ok {
		return nil, ""
	}
	href := ""
	if links, ok := lib["links"].(map[string]any); ok {
		if alt, ok := links["alternate"].(map[string]any); ok {
			href, _ = alt["href"].(string)
		}
	}
	flat := make(Object)
	for k, v := range lib {
		if _, nested := v.(map[string]any); nested {
			continue
		}
		if s := stringify(v); s != "" {
			flat[k] = s
		}
	}
	return flat, href
}
