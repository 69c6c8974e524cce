package content

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func loadDocumentFixture(t *testing.T, name string) Document {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", name, err)
	}
	doc, err := DecodeDocument(raw, DefaultRegistry())
	if err != nil {
		t.Fatalf("failed to decode fixture %q: %v", name, err)
	}
	return doc
}

// samePointer reports whether two reference values share storage.
func samePointer(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != vb.Kind() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}

func mustRead(t *testing.T, doc Document, section, path string, item Item) any {
	t.Helper()
	value, err := Read(doc, section, path, item)
	if err != nil {
		t.Fatalf("read %s %s: %v", section, path, err)
	}
	return value
}
