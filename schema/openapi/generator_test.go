package openapi

import (
	"encoding/json"
	"sync"
	"testing"

	content "github.com/goliatone/go-content"
	"github.com/goliatone/go-content/pkg/rules"
)

func TestNewGeneratorOptions(t *testing.T) {
	custom := NewGenerator(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Farm Site", "2.0.0", "editable content"),
		WithOperation("/content", "POST", "saveContent", "Save content"),
		WithContentType("application/vnd.content+json"),
		WithResponse("201", "Created"),
		WithRootComponent("Site"),
	)

	cfg := custom.config
	if got := cfg.openAPIVersion; got != "3.1.0" {
		t.Fatalf("expected openapi version 3.1.0, got %q", got)
	}
	if got := cfg.info.Title; got != "Farm Site" {
		t.Fatalf("expected info title Farm Site, got %q", got)
	}
	if got := cfg.info.Description; got != "editable content" {
		t.Fatalf("expected info description, got %q", got)
	}
	if got := cfg.operation.Method; got != "post" {
		t.Fatalf("expected method post, got %q", got)
	}
	if got := cfg.operation.Summary; got != "Save content" {
		t.Fatalf("expected operation summary, got %q", got)
	}
	if got := cfg.contentType; got != "application/vnd.content+json" {
		t.Fatalf("expected custom content type, got %q", got)
	}
	if got := cfg.responses["201"]; got != "Created" {
		t.Fatalf("expected response description Created, got %q", got)
	}
	if _, exists := cfg.responses["204"]; !exists {
		t.Fatalf("expected default 204 response to remain configured")
	}
	if got := cfg.rootComponent; got != "Site" {
		t.Fatalf("expected root component Site, got %q", got)
	}
}

func TestGenerateDefaultRegistry(t *testing.T) {
	doc, err := NewGenerator().Generate(content.DefaultRegistry())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if err := validateDocument(doc); err != nil {
		t.Fatalf("generated document invalid: %v", err)
	}

	schemas := componentSchemas(t, doc)
	for _, name := range []string{"Document", "Site", "Products", "ProductsItem", "ProductDetails", "ProductDetailsEntry"} {
		if _, ok := schemas[name]; !ok {
			t.Fatalf("expected component %s", name)
		}
	}

	root := schemas["Document"].(map[string]any)
	props := root["properties"].(map[string]any)
	if len(props) != len(content.DefaultRegistry().Names()) {
		t.Fatalf("expected one property per section, got %d", len(props))
	}
	ref := props["products"].(map[string]any)["$ref"]
	if ref != "#/components/schemas/Products" {
		t.Fatalf("unexpected products ref %v", ref)
	}

	products := schemas["Products"].(map[string]any)
	if products["type"] != "array" || products["x-shape"] != "list" {
		t.Fatalf("products must be a list array, got %v", products)
	}
	details := schemas["ProductDetails"].(map[string]any)
	if details["x-shape"] != "keyed" {
		t.Fatalf("productDetails must be keyed, got %v", details["x-shape"])
	}
	entryRef := details["additionalProperties"].(map[string]any)["$ref"]
	if entryRef != "#/components/schemas/ProductDetailsEntry" {
		t.Fatalf("unexpected entry ref %v", entryRef)
	}
}

func TestGenerateFieldKinds(t *testing.T) {
	registry, err := content.NewRegistry(content.Section{
		Name:  "catalog",
		Label: "Catalog",
		Shape: content.ShapeList,
		Fields: []content.Field{
			{Name: "id", Kind: content.KindID},
			{Name: "name", Label: "Name", Kind: content.KindString},
			{Name: "blurb", Kind: content.KindText},
			{Name: "inStock", Kind: content.KindBool},
			{Name: "weight", Kind: content.KindNumber},
			{Name: "photo", Kind: content.KindImage},
			{Name: "tags", Kind: content.KindStringList},
			{Name: "price", Kind: content.KindString, Rule: &rules.Rule{Expr: `value != ""`, Message: "required"}},
			{Name: "facts", Kind: content.KindRecord, Fields: []content.Field{
				{Name: "origin", Kind: content.KindString},
			}},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	doc, err := NewGenerator().Generate(registry)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	item := componentSchemas(t, doc)["CatalogItem"].(map[string]any)
	props := item["properties"].(map[string]any)

	expectType := map[string]string{
		"name":    "string",
		"blurb":   "string",
		"inStock": "boolean",
		"weight":  "number",
		"photo":   "string",
		"tags":    "array",
		"facts":   "object",
	}
	for name, want := range expectType {
		got := props[name].(map[string]any)["type"]
		if got != want {
			t.Fatalf("field %s: expected type %s, got %v", name, want, got)
		}
	}

	id := props["id"].(map[string]any)
	if id["readOnly"] != true {
		t.Fatalf("id must be read only, got %v", id)
	}
	blurb := props["blurb"].(map[string]any)
	if widget := blurb["x-formgen"].(map[string]any)["widget"]; widget != "textarea" {
		t.Fatalf("expected textarea widget, got %v", widget)
	}
	rule := props["price"].(map[string]any)["x-rule"].(map[string]any)
	if rule["engine"] != "expr" || rule["message"] != "required" {
		t.Fatalf("unexpected rule annotation %v", rule)
	}
	if title := props["name"].(map[string]any)["title"]; title != "Name" {
		t.Fatalf("expected field title Name, got %v", title)
	}
}

func TestGenerateNilRegistry(t *testing.T) {
	if _, err := NewGenerator().Generate(nil); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestGenerateRejectsComponentCollision(t *testing.T) {
	registry, err := content.NewRegistry(
		content.Section{Name: "team", Shape: content.ShapeList},
		content.Section{Name: "teamItem", Shape: content.ShapeRecord},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := NewGenerator().Generate(registry); err == nil {
		t.Fatalf("expected duplicate component error")
	}
}

func TestGenerateIsJSONSerializable(t *testing.T) {
	doc, err := NewGenerator().Generate(content.DefaultRegistry())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := json.Marshal(doc); err != nil {
		t.Fatalf("marshal document: %v", err)
	}
}

func TestValidateDocumentRejectsMissingPieces(t *testing.T) {
	cases := map[string]map[string]any{
		"no version": {"info": map[string]any{"title": "t", "version": "1"}},
		"no info":    {"openapi": "3.0.3"},
		"no paths":   {"openapi": "3.0.3", "info": map[string]any{"title": "t", "version": "1"}},
		"no body": {
			"openapi": "3.0.3",
			"info":    map[string]any{"title": "t", "version": "1"},
			"paths": map[string]any{"/document": map[string]any{
				"put": map[string]any{"operationId": "put", "responses": map[string]any{"204": map[string]any{}}},
			}},
		},
	}
	for name, doc := range cases {
		if err := validateDocument(doc); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestGeneratorConcurrentAccess(t *testing.T) {
	t.Parallel()

	generator := NewGenerator()
	registry := content.DefaultRegistry()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if _, err := generator.Generate(registry); err != nil {
				t.Errorf("Generate returned error: %v", err)
			}
		}()
	}
	wg.Wait()
}

func componentSchemas(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	components, ok := doc["components"].(map[string]any)
	if !ok {
		t.Fatalf("document missing components")
	}
	schemas, ok := components["schemas"].(map[string]any)
	if !ok {
		t.Fatalf("components missing schemas")
	}
	return schemas
}
