package content

import (
	"github.com/goliatone/go-content/layering"
)

// AddItem appends a new item built from the section template to a list
// section. ids may be nil to use the process-wide clock generator.
func AddItem(doc Document, section string, ids IDGenerator) (Document, error) {
	return AddItemWith(doc, section, nil, ids)
}

// AddItemWith is AddItem with overrides merged over the template. The
// generated id always wins over an id given in overrides.
func AddItemWith(doc Document, section string, overrides map[string]any, ids IDGenerator) (Document, error) {
	desc, err := listSection(doc, section)
	if err != nil {
		return doc, err
	}
	id := idsOrDefault(ids).NextID(doc, section)
	item, err := newItem(desc, id, overrides)
	if err != nil {
		return doc, err
	}

	list, _ := doc.List(section)
	updated := make([]any, len(list), len(list)+1)
	copy(updated, list)
	updated = append(updated, item)
	return doc.with(section, updated), nil
}

// RemoveItem deletes the record at index and closes the gap. The relative
// order of the remaining records is preserved.
func RemoveItem(doc Document, section string, index int) (Document, error) {
	if _, err := listSection(doc, section); err != nil {
		return doc, err
	}
	list, _ := doc.List(section)
	if index < 0 || index >= len(list) {
		return doc, &IndexError{Section: section, Index: index, Len: len(list)}
	}
	updated := make([]any, 0, len(list)-1)
	updated = append(updated, list[:index]...)
	updated = append(updated, list[index+1:]...)
	return doc.with(section, updated), nil
}

// MoveItem moves the record at from so that it ends up at index to.
func MoveItem(doc Document, section string, from, to int) (Document, error) {
	if _, err := listSection(doc, section); err != nil {
		return doc, err
	}
	list, _ := doc.List(section)
	if from < 0 || from >= len(list) {
		return doc, &IndexError{Section: section, Index: from, Len: len(list)}
	}
	if to < 0 || to >= len(list) {
		return doc, &IndexError{Section: section, Index: to, Len: len(list)}
	}
	if from == to {
		return doc, nil
	}
	moved := list[from]
	updated := make([]any, 0, len(list))
	for i, item := range list {
		if i == from {
			continue
		}
		updated = append(updated, item)
	}
	updated = append(updated[:to], append([]any{moved}, updated[to:]...)...)
	return doc.with(section, updated), nil
}

// RemoveKey deletes slug from a keyed section. Remaining keys keep their
// insertion order.
func RemoveKey(doc Document, section, slug string) (Document, error) {
	if _, err := keyedSection(doc, section); err != nil {
		return doc, err
	}
	keyed, ok := doc.Keyed(section)
	if !ok {
		return doc, &IndexError{Section: section, Key: slug}
	}
	if _, found := keyed.Get(slug); !found {
		return doc, &IndexError{Section: section, Key: slug}
	}
	updated := copyKeyed(keyed)
	updated.Delete(slug)
	return doc.with(section, updated), nil
}

// AddKeyed stores a new record under slug in a keyed section. The template is
// merged over the section's default item.
func AddKeyed(doc Document, section, slug string, template map[string]any, ids IDGenerator) (Document, error) {
	desc, err := keyedSection(doc, section)
	if err != nil {
		return doc, err
	}
	if slug == "" {
		return doc, &AddressError{Section: section, Reason: "slug must not be empty"}
	}
	keyed, ok := doc.Keyed(section)
	if !ok {
		keyed = newKeyed()
	}
	if _, exists := keyed.Get(slug); exists {
		return doc, &EditError{Section: section, Path: slug, Reason: "slug already exists"}
	}
	id := idsOrDefault(ids).NextID(doc, section)
	item, err := newItem(desc, id, template)
	if err != nil {
		return doc, err
	}
	updated := copyKeyed(keyed)
	updated.Set(slug, item)
	return doc.with(section, updated), nil
}

// AddProductDetail adds a product detail entry under slug. The built-in
// document has no other way to create product detail pages.
func AddProductDetail(doc Document, slug string, template map[string]any, ids IDGenerator) (Document, error) {
	return AddKeyed(doc, SectionProductDetails, slug, template, ids)
}

// newItem builds a template item and merges overrides over it. Overrides are
// checked against the section's field descriptors.
func newItem(desc Section, id any, overrides map[string]any) (map[string]any, error) {
	base := desc.NewItem(id)
	if len(overrides) == 0 {
		return base, nil
	}
	overrides, _ = normalizeValue(overrides).(map[string]any)
	if len(desc.Fields) > 0 {
		if err := checkMembers(desc.Fields, overrides, ""); err != nil {
			return nil, &EditError{Section: desc.Name, Reason: "invalid template", Err: err}
		}
	}
	item, _ := normalizeValue(layering.MergeRecords(overrides, base)).(map[string]any)
	item["id"] = base["id"]
	return item, nil
}

func listSection(doc Document, section string) (Section, error) {
	desc, err := doc.Registry().section(section)
	if err != nil {
		return Section{}, err
	}
	if desc.Shape != ShapeList {
		return Section{}, &AddressError{Section: section, Reason: desc.Shape.String() + " section has no list items"}
	}
	return desc, nil
}

func keyedSection(doc Document, section string) (Section, error) {
	desc, err := doc.Registry().section(section)
	if err != nil {
		return Section{}, err
	}
	if desc.Shape != ShapeKeyed {
		return Section{}, &AddressError{Section: section, Reason: desc.Shape.String() + " section has no keys"}
	}
	return desc, nil
}
