package content

import (
	"strconv"
	"strings"
)

// AddressKind tags the shape of an Address.
type AddressKind uint8

const (
	// FieldAddress targets a direct member of the selected record ("name").
	FieldAddress AddressKind = iota
	// NestedAddress targets a member of a nested record ("nutrition.calories").
	NestedAddress
	// IndexedAddress targets one element of a list of primitives ("cookingTips.0").
	IndexedAddress
)

func (k AddressKind) String() string {
	switch k {
	case FieldAddress:
		return "field"
	case NestedAddress:
		return "nested"
	case IndexedAddress:
		return "indexed"
	default:
		return "unknown"
	}
}

// Address is a parsed field path within one record of a section.
type Address struct {
	Kind  AddressKind
	Field string
	Child string
	Index int
}

// ParseAddress parses a dotted path. At most two segments are supported; the
// first segment is always a field name and a numeric second segment selects a
// primitive list element.
func ParseAddress(path string) (Address, error) {
	if path == "" {
		return Address{}, &AddressError{Path: path, Reason: "path must not be empty"}
	}
	segments := strings.Split(path, ".")
	if len(segments) > 2 {
		return Address{}, &AddressError{Path: path, Reason: "nesting deeper than two levels is not supported"}
	}
	for _, segment := range segments {
		if segment == "" {
			return Address{}, &AddressError{Path: path, Reason: "empty path segment"}
		}
	}
	if isIndexSegment(segments[0]) {
		return Address{}, &AddressError{Path: path, Reason: "path must start with a field name"}
	}
	if len(segments) == 1 {
		return Address{Kind: FieldAddress, Field: segments[0]}, nil
	}
	if isIndexSegment(segments[1]) {
		index, err := strconv.Atoi(segments[1])
		if err != nil {
			return Address{}, &AddressError{Path: path, Reason: "list index out of bounds"}
		}
		return Address{Kind: IndexedAddress, Field: segments[0], Index: index}, nil
	}
	return Address{Kind: NestedAddress, Field: segments[0], Child: segments[1]}, nil
}

// MustParseAddress is ParseAddress for static paths; it panics on error.
func MustParseAddress(path string) Address {
	addr, err := ParseAddress(path)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	switch a.Kind {
	case NestedAddress:
		return a.Field + "." + a.Child
	case IndexedAddress:
		return a.Field + "." + strconv.Itoa(a.Index)
	default:
		return a.Field
	}
}

// Leaf returns the name of the innermost named member.
func (a Address) Leaf() string {
	if a.Kind == NestedAddress {
		return a.Child
	}
	return a.Field
}

func isIndexSegment(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type itemKind uint8

const (
	itemRoot itemKind = iota
	itemIndex
	itemSlug
)

// Item selects the record being addressed within a section: Root for record
// sections, AtIndex for list sections and AtSlug for keyed sections.
type Item struct {
	kind  itemKind
	index int
	slug  string
}

// Root selects the section value itself.
var Root = Item{}

// AtIndex selects the i-th record of a list section.
func AtIndex(i int) Item {
	return Item{kind: itemIndex, index: i}
}

// AtSlug selects the record stored under slug in a keyed section.
func AtSlug(slug string) Item {
	return Item{kind: itemSlug, slug: slug}
}

// IsRoot reports whether the item selects the section value itself.
func (i Item) IsRoot() bool {
	return i.kind == itemRoot
}

// Index returns the list index, if any.
func (i Item) Index() (int, bool) {
	return i.index, i.kind == itemIndex
}

// Slug returns the mapping key, if any.
func (i Item) Slug() (string, bool) {
	return i.slug, i.kind == itemSlug
}

func (i Item) String() string {
	switch i.kind {
	case itemIndex:
		return "[" + strconv.Itoa(i.index) + "]"
	case itemSlug:
		return "[" + strconv.Quote(i.slug) + "]"
	default:
		return ""
	}
}
