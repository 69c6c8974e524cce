package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Keyed is the insertion-ordered mapping used by keyed sections.
type Keyed = orderedmap.OrderedMap[string, any]

// Document is an immutable snapshot of the site content: a mapping from
// section name to section value. Values returned by accessors are shared with
// the document and must be treated as read-only; every change goes through
// Write or the collection operations, which return a new Document.
type Document struct {
	sections map[string]any
	registry *Registry
}

// NewDocument builds a document from plain Go values. Sections missing from
// sections are filled with their empty value. Values are normalized the same
// way DecodeDocument normalizes JSON input.
func NewDocument(registry *Registry, sections map[string]any) (Document, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	out := make(map[string]any, len(sections))
	for name, value := range sections {
		desc, known := registry.Lookup(name)
		if !known {
			out[name] = normalizeValue(value)
			continue
		}
		normalized, err := normalizeSection(desc, value)
		if err != nil {
			return Document{}, err
		}
		out[name] = normalized
	}
	fillMissing(registry, out)
	return Document{sections: out, registry: registry}, nil
}

// EmptyDocument returns a document where every registered section holds its
// empty value.
func EmptyDocument(registry *Registry) Document {
	doc, _ := NewDocument(registry, nil)
	return doc
}

// Registry returns the section registry the document was built with.
func (d Document) Registry() *Registry {
	if d.registry == nil {
		return DefaultRegistry()
	}
	return d.registry
}

// Section returns the raw value of a section.
func (d Document) Section(name string) (any, bool) {
	value, ok := d.sections[name]
	return value, ok
}

// Record returns a record-shaped section.
func (d Document) Record(name string) (map[string]any, bool) {
	record, ok := d.sections[name].(map[string]any)
	return record, ok
}

// List returns the records of a list-shaped section.
func (d Document) List(name string) ([]any, bool) {
	list, ok := d.sections[name].([]any)
	return list, ok
}

// Keyed returns a keyed section.
func (d Document) Keyed(name string) (*Keyed, bool) {
	keyed, ok := d.sections[name].(*Keyed)
	return keyed, ok && keyed != nil
}

// Slugs returns the keys of a keyed section in insertion order.
func (d Document) Slugs(name string) []string {
	keyed, ok := d.Keyed(name)
	if !ok {
		return nil
	}
	slugs := make([]string, 0, keyed.Len())
	for pair := keyed.Oldest(); pair != nil; pair = pair.Next() {
		slugs = append(slugs, pair.Key)
	}
	return slugs
}

// Names returns section names in encoding order.
func (d Document) Names() []string {
	return d.Registry().encodeOrder(d.sections)
}

// IsZero reports whether the document was never initialized.
func (d Document) IsZero() bool {
	return d.sections == nil
}

// Clone returns a deep copy that shares nothing with d.
func (d Document) Clone() Document {
	out := make(map[string]any, len(d.sections))
	for name, value := range d.sections {
		out[name] = cloneValue(value)
	}
	return Document{sections: out, registry: d.registry}
}

// Same reports whether a and b share the same root, i.e. b was not produced
// by a write applied to a.
func Same(a, b Document) bool {
	if a.sections == nil || b.sections == nil {
		return a.sections == nil && b.sections == nil
	}
	return reflect.ValueOf(a.sections).Pointer() == reflect.ValueOf(b.sections).Pointer()
}

// Equal reports whether two documents have the same canonical encoding.
func Equal(a, b Document) bool {
	if Same(a, b) {
		return true
	}
	left, err := a.MarshalJSON()
	if err != nil {
		return false
	}
	right, err := b.MarshalJSON()
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// with returns a copy of d where section name holds value. The root map is
// copied; section values are shared.
func (d Document) with(name string, value any) Document {
	out := make(map[string]any, len(d.sections)+1)
	for key, existing := range d.sections {
		out[key] = existing
	}
	out[name] = value
	return Document{sections: out, registry: d.registry}
}

// MarshalJSON encodes sections in registry order followed by unknown sections
// sorted by name.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(d.sections[name])
		if err != nil {
			return nil, fmt.Errorf("content: encode section %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeDocument parses a JSON document. Integral numbers become int64 and the
// remaining numbers float64. Keyed sections keep the key order of the input.
func DecodeDocument(data []byte, registry *Registry) (Document, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("content: decode document: %w", err)
	}
	if raw == nil {
		return Document{}, fmt.Errorf("content: decode document: not an object")
	}
	out := make(map[string]any, len(raw))
	for name, msg := range raw {
		desc, known := registry.Lookup(name)
		var (
			value any
			err   error
		)
		switch {
		case !known:
			value, err = decodeValue(msg)
		case desc.Shape == ShapeKeyed:
			value, err = decodeKeyed(name, msg)
		default:
			value, err = decodeValue(msg)
			if err == nil {
				value, err = normalizeSection(desc, value)
			}
		}
		if err != nil {
			return Document{}, fmt.Errorf("content: decode section %q: %w", name, err)
		}
		out[name] = value
	}
	fillMissing(registry, out)
	return Document{sections: out, registry: registry}, nil
}

func fillMissing(registry *Registry, sections map[string]any) {
	for _, desc := range registry.Sections() {
		if value, ok := sections[desc.Name]; !ok || value == nil {
			sections[desc.Name] = desc.empty()
		}
	}
}

func decodeValue(msg json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return normalizeValue(value), nil
}

// decodeKeyed reads an object token by token so key order is preserved.
func decodeKeyed(section string, msg json.RawMessage) (*Keyed, error) {
	keyed := newKeyed()
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return keyed, nil
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("section %q must be an object", section)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("section %q has a non-string key", section)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		record, ok := normalizeValue(value).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %q must be an object", key)
		}
		keyed.Set(key, record)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return keyed, nil
}

func normalizeSection(desc Section, value any) (any, error) {
	switch desc.Shape {
	case ShapeList:
		if value == nil {
			return []any{}, nil
		}
		list, ok := normalizeValue(value).([]any)
		if !ok {
			return nil, fmt.Errorf("content: section %q must be a list", desc.Name)
		}
		for i, item := range list {
			if _, ok := item.(map[string]any); !ok {
				return nil, fmt.Errorf("content: section %q item %d must be a record", desc.Name, i)
			}
		}
		return list, nil
	case ShapeKeyed:
		if value == nil {
			return newKeyed(), nil
		}
		if keyed, ok := value.(*Keyed); ok {
			out := newKeyed()
			for pair := keyed.Oldest(); pair != nil; pair = pair.Next() {
				record, ok := normalizeValue(pair.Value).(map[string]any)
				if !ok {
					return nil, fmt.Errorf("content: section %q entry %q must be a record", desc.Name, pair.Key)
				}
				out.Set(pair.Key, record)
			}
			return out, nil
		}
		generic, ok := normalizeValue(value).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("content: section %q must be a mapping", desc.Name)
		}
		// Plain Go maps carry no order; fall back to JSON key order.
		data, err := json.Marshal(generic)
		if err != nil {
			return nil, err
		}
		return decodeKeyed(desc.Name, data)
	default:
		if value == nil {
			return recordTemplate(desc.Fields), nil
		}
		record, ok := normalizeValue(value).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("content: section %q must be a record", desc.Name)
		}
		return record, nil
	}
}

// normalizeUint keeps unsigned values above the int64 range as float64.
func normalizeUint(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

// normalizeValue converts Go values into the canonical document
// representation: map[string]any, []any, string, bool, int64, float64, nil.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case nil, string, bool, int64:
		return v
	case float64:
		return normalizeFloat(v)
	case float32:
		return normalizeFloat(float64(v))
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeUint(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return normalizeUint(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case *Keyed:
		out := newKeyed()
		if v != nil {
			for pair := v.Oldest(); pair != nil; pair = pair.Next() {
				out.Set(pair.Key, normalizeValue(pair.Value))
			}
		}
		return out
	default:
		// Structs and other types go through their JSON form.
		data, err := json.Marshal(v)
		if err != nil {
			return v
		}
		decoded, err := decodeValue(data)
		if err != nil {
			return v
		}
		return decoded
	}
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// cloneValue deep-copies a canonical value.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case *Keyed:
		out := newKeyed()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, cloneValue(pair.Value))
		}
		return out
	default:
		return v
	}
}

func newKeyed() *Keyed {
	return orderedmap.New[string, any]()
}

// copyKeyed returns a shallow copy that keeps key order.
func copyKeyed(src *Keyed) *Keyed {
	out := newKeyed()
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

func copyRecord(src map[string]any) map[string]any {
	out := make(map[string]any, len(src)+1)
	for key, value := range src {
		out[key] = value
	}
	return out
}

func valuesEqual(a, b any) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}
