package content

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-content/layering"
	"github.com/goliatone/go-content/pkg/rules"
)

// Shape describes how a section stores its records.
type Shape uint8

const (
	// ShapeRecord sections hold a single record.
	ShapeRecord Shape = iota
	// ShapeList sections hold an ordered list of records with stable ids.
	ShapeList
	// ShapeKeyed sections map slugs to records in insertion order.
	ShapeKeyed
)

func (s Shape) String() string {
	switch s {
	case ShapeRecord:
		return "record"
	case ShapeList:
		return "list"
	case ShapeKeyed:
		return "keyed"
	default:
		return "unknown"
	}
}

// FieldKind is the declared type of a record member.
type FieldKind uint8

const (
	KindString FieldKind = iota
	KindText
	KindBool
	KindImage
	KindNumber
	KindID
	KindRecord
	KindStringList
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindImage:
		return "image"
	case KindNumber:
		return "number"
	case KindID:
		return "id"
	case KindRecord:
		return "record"
	case KindStringList:
		return "string_list"
	default:
		return "unknown"
	}
}

// Scalar reports whether values of this kind can be staged directly.
func (k FieldKind) Scalar() bool {
	switch k {
	case KindRecord, KindStringList, KindID:
		return false
	default:
		return true
	}
}

// Field describes one member of a section record.
type Field struct {
	Name  string
	Label string
	Kind  FieldKind
	// Fields lists the members of a KindRecord field.
	Fields []Field
	// Default is the template value for new items. When nil the zero value of
	// Kind is used.
	Default any
	// Rule is checked when an edit of this field is saved.
	Rule *rules.Rule
}

// Section describes one top-level region of a document.
type Section struct {
	Name   string
	Label  string
	Shape  Shape
	Fields []Field
	// Template builds a new item for list and keyed sections. When nil the
	// item is derived from Fields.
	Template func(id any) map[string]any
}

// Field returns the descriptor of a top-level member.
func (s Section) Field(name string) (Field, bool) {
	return findField(s.Fields, name)
}

// Describe returns the descriptor addressed by addr, if the section declares
// one.
func (s Section) Describe(addr Address) (Field, bool) {
	field, ok := s.Field(addr.Field)
	if !ok {
		return Field{}, false
	}
	switch addr.Kind {
	case NestedAddress:
		if field.Kind != KindRecord {
			return Field{}, false
		}
		return findField(field.Fields, addr.Child)
	case IndexedAddress:
		if field.Kind != KindStringList {
			return Field{}, false
		}
		return Field{Name: addr.String(), Label: field.Label, Kind: KindString, Rule: field.Rule}, true
	default:
		return field, true
	}
}

// NewItem instantiates the section template with the given id.
func (s Section) NewItem(id any) map[string]any {
	if s.Template != nil {
		item := s.Template(id)
		if item == nil {
			item = map[string]any{}
		}
		if s.Shape == ShapeList || s.Shape == ShapeKeyed {
			item["id"] = normalizeValue(id)
		}
		return item
	}
	item := recordTemplate(s.Fields)
	if s.Shape == ShapeList || s.Shape == ShapeKeyed {
		item["id"] = normalizeValue(id)
	}
	return item
}

func (s Section) empty() any {
	switch s.Shape {
	case ShapeList:
		return []any{}
	case ShapeKeyed:
		return newKeyed()
	default:
		return recordTemplate(s.Fields)
	}
}

func recordTemplate(fields []Field) map[string]any {
	item := make(map[string]any, len(fields))
	for _, field := range fields {
		if field.Kind == KindID {
			continue
		}
		item[field.Name] = field.zero()
	}
	return item
}

func (f Field) zero() any {
	if f.Default != nil {
		return normalizeValue(layering.Clone(f.Default))
	}
	switch f.Kind {
	case KindBool:
		return false
	case KindNumber:
		return int64(0)
	case KindRecord:
		return recordTemplate(f.Fields)
	case KindStringList:
		return []any{}
	default:
		return ""
	}
}

func findField(fields []Field, name string) (Field, bool) {
	for _, field := range fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// checkValue reports whether value fits the field's kind. Records are checked
// member by member; a record field without member descriptors accepts any
// record.
func (f Field) checkValue(value any) error {
	switch f.Kind {
	case KindID:
		switch value.(type) {
		case int64, float64, string:
			return nil
		}
		return fmt.Errorf("expected id, got %T", value)
	case KindRecord:
		record, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("expected record, got %T", value)
		}
		if len(f.Fields) == 0 {
			return nil
		}
		return checkMembers(f.Fields, record, f.Name+".")
	case KindStringList:
		list, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected list of strings, got %T", value)
		}
		for i, elem := range list {
			if _, ok := elem.(string); !ok {
				return fmt.Errorf("element %d: expected string, got %T", i, elem)
			}
		}
		return nil
	default:
		return checkKind(f.Kind, value)
	}
}

// checkMembers checks every member of record against fields. Members without
// a descriptor are rejected.
func checkMembers(fields []Field, record map[string]any, prefix string) error {
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field, ok := findField(fields, name)
		if !ok {
			return fmt.Errorf("unknown field %s%s", prefix, name)
		}
		if err := field.checkValue(record[name]); err != nil {
			return fmt.Errorf("%s%s: %w", prefix, name, err)
		}
	}
	return nil
}

// FieldPath is one addressable path of a section item.
type FieldPath struct {
	Path  string
	Label string
	Kind  FieldKind
}

// Registry maps section names to descriptors. It is read-only once built.
type Registry struct {
	order    []string
	sections map[string]Section
}

// NewRegistry builds a registry. Section order is preserved and drives
// document encoding order.
func NewRegistry(sections ...Section) (*Registry, error) {
	reg := &Registry{sections: make(map[string]Section, len(sections))}
	for _, section := range sections {
		if section.Name == "" {
			return nil, fmt.Errorf("content: section name must not be empty")
		}
		if _, exists := reg.sections[section.Name]; exists {
			return nil, fmt.Errorf("content: duplicate section %q", section.Name)
		}
		reg.order = append(reg.order, section.Name)
		reg.sections[section.Name] = section
	}
	return reg, nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Section, bool) {
	if r == nil {
		return Section{}, false
	}
	section, ok := r.sections[name]
	return section, ok
}

// Names returns section names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Sections returns the descriptors in registration order.
func (r *Registry) Sections() []Section {
	if r == nil {
		return nil
	}
	out := make([]Section, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sections[name])
	}
	return out
}

// Fields lists every addressable path of one item of section. Nested record
// members are flattened to "parent.child"; string lists are reported once
// under their own name.
func (r *Registry) Fields(section string) ([]FieldPath, error) {
	desc, ok := r.Lookup(section)
	if !ok {
		return nil, &AddressError{Section: section, Reason: "unknown section"}
	}
	var out []FieldPath
	for _, field := range desc.Fields {
		if field.Kind == KindRecord {
			for _, child := range field.Fields {
				out = append(out, FieldPath{
					Path:  field.Name + "." + child.Name,
					Label: child.Label,
					Kind:  child.Kind,
				})
			}
			continue
		}
		out = append(out, FieldPath{Path: field.Name, Label: field.Label, Kind: field.Kind})
	}
	return out, nil
}

// section resolves a descriptor or fails with an AddressError.
func (r *Registry) section(name string) (Section, error) {
	desc, ok := r.Lookup(name)
	if !ok {
		return Section{}, &AddressError{Section: name, Reason: "unknown section"}
	}
	return desc, nil
}

// encodeOrder returns known section names first, then extra names sorted.
func (r *Registry) encodeOrder(present map[string]any) []string {
	names := make([]string, 0, len(present))
	for _, name := range r.Names() {
		if _, ok := present[name]; ok {
			names = append(names, name)
		}
	}
	var extra []string
	for name := range present {
		if _, known := r.Lookup(name); !known {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
