package content

// Read returns the value at path within the item of section selected by item.
// Record sections take Root, list sections AtIndex and keyed sections AtSlug.
func Read(doc Document, section, path string, item Item) (any, error) {
	addr, err := ParseAddress(path)
	if err != nil {
		return nil, withSection(err, section)
	}
	return ReadAddress(doc, section, addr, item)
}

// ReadAddress is Read for an already parsed address.
func ReadAddress(doc Document, section string, addr Address, item Item) (any, error) {
	desc, err := doc.Registry().section(section)
	if err != nil {
		return nil, err
	}
	record, err := selectRecord(doc, desc, item)
	if err != nil {
		return nil, err
	}
	return readRecord(desc, record, addr)
}

// Write returns a new document where the value at path is replaced. The input
// document is never modified: only the containers on the way to the value are
// copied, every other section and record is shared with doc.
func Write(doc Document, section, path string, value any, item Item) (Document, error) {
	addr, err := ParseAddress(path)
	if err != nil {
		return doc, withSection(err, section)
	}
	return WriteAddress(doc, section, addr, value, item)
}

// WriteAddress is Write for an already parsed address.
func WriteAddress(doc Document, section string, addr Address, value any, item Item) (Document, error) {
	desc, err := doc.Registry().section(section)
	if err != nil {
		return doc, err
	}
	if desc.Shape != ShapeRecord && addr.Kind == FieldAddress && addr.Field == "id" {
		return doc, &AddressError{Section: section, Path: addr.String(), Reason: "item ids are immutable"}
	}
	record, err := selectRecord(doc, desc, item)
	if err != nil {
		return doc, err
	}
	value = normalizeValue(value)
	if err := checkWrite(desc, record, addr, value); err != nil {
		return doc, err
	}
	updated, err := writeRecord(desc, record, addr, value)
	if err != nil {
		return doc, err
	}
	return replaceRecord(doc, desc, item, updated), nil
}

// selectRecord resolves the record of desc addressed by item.
func selectRecord(doc Document, desc Section, item Item) (map[string]any, error) {
	value, _ := doc.Section(desc.Name)
	switch desc.Shape {
	case ShapeRecord:
		if !item.IsRoot() {
			return nil, &AddressError{Section: desc.Name, Reason: "record section does not take an item selector"}
		}
		record, ok := value.(map[string]any)
		if !ok {
			return map[string]any{}, nil
		}
		return record, nil
	case ShapeList:
		index, ok := item.Index()
		if !ok {
			return nil, &AddressError{Section: desc.Name, Reason: "list section requires an item index"}
		}
		list, _ := value.([]any)
		if index < 0 || index >= len(list) {
			return nil, &IndexError{Section: desc.Name, Index: index, Len: len(list)}
		}
		record, ok := list[index].(map[string]any)
		if !ok {
			return nil, &AddressError{Section: desc.Name, Reason: "list item is not a record"}
		}
		return record, nil
	case ShapeKeyed:
		slug, ok := item.Slug()
		if !ok {
			return nil, &AddressError{Section: desc.Name, Reason: "keyed section requires a slug"}
		}
		keyed, _ := value.(*Keyed)
		if keyed == nil {
			return nil, &IndexError{Section: desc.Name, Key: slug}
		}
		raw, found := keyed.Get(slug)
		if !found {
			return nil, &IndexError{Section: desc.Name, Key: slug}
		}
		record, ok := raw.(map[string]any)
		if !ok {
			return nil, &AddressError{Section: desc.Name, Reason: "keyed entry is not a record"}
		}
		return record, nil
	default:
		return nil, &AddressError{Section: desc.Name, Reason: "unsupported section shape"}
	}
}

func readRecord(desc Section, record map[string]any, addr Address) (any, error) {
	_, described := desc.Field(addr.Field)
	value, present := record[addr.Field]
	if !present && !described {
		return nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: "unknown field"}
	}

	switch addr.Kind {
	case NestedAddress:
		if value == nil {
			return nil, nil
		}
		parent, ok := value.(map[string]any)
		if !ok {
			return nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: addr.Field + " is not a record"}
		}
		return parent[addr.Child], nil
	case IndexedAddress:
		list, ok := value.([]any)
		if value != nil && !ok {
			return nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: addr.Field + " is not a list"}
		}
		if addr.Index >= len(list) {
			return nil, &IndexError{Section: desc.Name, Path: addr.Field, Index: addr.Index, Len: len(list)}
		}
		return list[addr.Index], nil
	default:
		return value, nil
	}
}

// checkWrite rejects values of the wrong kind for described fields and
// addresses that match neither a descriptor nor a member already present.
func checkWrite(desc Section, record map[string]any, addr Address, value any) error {
	if field, ok := desc.Describe(addr); ok {
		if err := field.checkValue(value); err != nil {
			return &EditError{Section: desc.Name, Path: addr.String(), Reason: err.Error()}
		}
		return nil
	}
	if top, ok := desc.Field(addr.Field); ok {
		if addr.Kind == NestedAddress && top.Kind == KindRecord && len(top.Fields) == 0 {
			return nil
		}
		return &AddressError{Section: desc.Name, Path: addr.String(), Reason: "unknown field"}
	}
	if _, present := record[addr.Field]; !present {
		return &AddressError{Section: desc.Name, Path: addr.String(), Reason: "unknown field"}
	}
	return nil
}

func writeRecord(desc Section, record map[string]any, addr Address, value any) (map[string]any, error) {
	updated := copyRecord(record)
	switch addr.Kind {
	case NestedAddress:
		var parent map[string]any
		switch existing := record[addr.Field].(type) {
		case nil:
			parent = map[string]any{}
		case map[string]any:
			parent = copyRecord(existing)
		default:
			return nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: addr.Field + " is not a record"}
		}
		parent[addr.Child] = value
		updated[addr.Field] = parent
	case IndexedAddress:
		existing, ok := record[addr.Field].([]any)
		if record[addr.Field] != nil && !ok {
			return nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: addr.Field + " is not a list"}
		}
		if addr.Index >= len(existing) {
			return nil, &IndexError{Section: desc.Name, Path: addr.Field, Index: addr.Index, Len: len(existing)}
		}
		list := make([]any, len(existing))
		copy(list, existing)
		list[addr.Index] = value
		updated[addr.Field] = list
	default:
		updated[addr.Field] = value
	}
	return updated, nil
}

// replaceRecord installs record at item, copying only the containers on the
// path from the document root.
func replaceRecord(doc Document, desc Section, item Item, record map[string]any) Document {
	switch desc.Shape {
	case ShapeList:
		index, _ := item.Index()
		list, _ := doc.List(desc.Name)
		updated := make([]any, len(list))
		copy(updated, list)
		updated[index] = record
		return doc.with(desc.Name, updated)
	case ShapeKeyed:
		slug, _ := item.Slug()
		keyed, _ := doc.Keyed(desc.Name)
		updated := copyKeyed(keyed)
		updated.Set(slug, record)
		return doc.with(desc.Name, updated)
	default:
		return doc.with(desc.Name, record)
	}
}

func withSection(err error, section string) error {
	if addrErr, ok := err.(*AddressError); ok && addrErr.Section == "" {
		copied := *addrErr
		copied.Section = section
		return &copied
	}
	return err
}
