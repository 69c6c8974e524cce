package content

import (
	_ "embed"
	"sync"
)

//go:embed default_document.json
var defaultDocumentJSON []byte

var builtinDocument = sync.OnceValues(func() (Document, error) {
	return DecodeDocument(defaultDocumentJSON, DefaultRegistry())
})

// DefaultDocument returns the built-in document used when nothing has been
// committed yet. A registry other than DefaultRegistry gets the built-in
// content decoded against it; sections it does not know are kept as-is.
func DefaultDocument(registry *Registry) Document {
	if registry == nil || registry == DefaultRegistry() {
		doc, err := builtinDocument()
		if err != nil {
			panic(err)
		}
		return doc
	}
	doc, err := DecodeDocument(defaultDocumentJSON, registry)
	if err != nil {
		return EmptyDocument(registry)
	}
	return doc
}
