// Package openapi describes a content registry as an OpenAPI 3 document so
// form builders and API clients can discover the editable fields.
package openapi

import (
	"fmt"
	"strings"
	"unicode"

	content "github.com/goliatone/go-content"
	"github.com/goliatone/go-content/pkg/rules"
)

// Generator turns a section registry into an OpenAPI document.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Generator{config: cfg}
}

// Generate builds the document for registry. Every section is published as
// a component; list and keyed sections also publish their item schema.
func (g *Generator) Generate(registry *content.Registry) (map[string]any, error) {
	if registry == nil {
		return nil, fmt.Errorf("openapi: registry cannot be nil")
	}
	components := newComponents()

	root := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	props := root["properties"].(map[string]any)
	required := make([]string, 0, len(registry.Names()))

	for _, section := range registry.Sections() {
		ref, err := components.addSection(section)
		if err != nil {
			return nil, err
		}
		props[section.Name] = map[string]any{"$ref": ref}
		required = append(required, section.Name)
	}
	if len(required) > 0 {
		root["required"] = required
	}
	rootRef, err := components.add(g.config.rootComponent, root)
	if err != nil {
		return nil, err
	}
	return newDocumentBuilder(g.config, components, rootRef).build()
}

func (c *components) addSection(section content.Section) (string, error) {
	base := componentName(section.Name)
	record := recordSchema(section.Fields, section.Shape != content.ShapeRecord)

	var schema map[string]any
	switch section.Shape {
	case content.ShapeRecord:
		schema = record
	case content.ShapeList:
		ref, err := c.add(base+"Item", record)
		if err != nil {
			return "", err
		}
		schema = map[string]any{
			"type":  "array",
			"items": map[string]any{"$ref": ref},
		}
	case content.ShapeKeyed:
		ref, err := c.add(base+"Entry", record)
		if err != nil {
			return "", err
		}
		schema = map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"$ref": ref},
			"x-keyed":              true,
		}
	default:
		return "", fmt.Errorf("openapi: section %q has unknown shape", section.Name)
	}
	if section.Label != "" {
		schema["title"] = section.Label
	}
	schema["x-shape"] = section.Shape.String()
	return c.add(base, schema)
}

func recordSchema(fields []content.Field, withID bool) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, field := range fields {
		props[field.Name] = fieldSchema(field)
		if field.Kind != content.KindID || withID {
			required = append(required, field.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fieldSchema(field content.Field) map[string]any {
	var schema map[string]any
	switch field.Kind {
	case content.KindBool:
		schema = map[string]any{"type": "boolean"}
	case content.KindNumber:
		schema = map[string]any{"type": "number"}
	case content.KindID:
		schema = map[string]any{
			"oneOf":    []any{map[string]any{"type": "integer"}, map[string]any{"type": "string"}},
			"readOnly": true,
		}
	case content.KindText:
		schema = map[string]any{
			"type":      "string",
			"x-formgen": map[string]any{"widget": "textarea"},
		}
	case content.KindImage:
		schema = map[string]any{
			"type":      "string",
			"format":    "uri-reference",
			"x-formgen": map[string]any{"widget": "image"},
		}
	case content.KindRecord:
		schema = recordSchema(field.Fields, false)
	case content.KindStringList:
		schema = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	default:
		schema = map[string]any{"type": "string"}
	}
	if field.Label != "" {
		schema["title"] = field.Label
	}
	if field.Rule != nil {
		engine := field.Rule.Engine
		if engine == "" {
			engine = rules.EngineExpr
		}
		rule := map[string]any{
			"engine": string(engine),
			"expr":   field.Rule.Expr,
		}
		if field.Rule.Message != "" {
			rule["message"] = field.Rule.Message
		}
		schema["x-rule"] = rule
	}
	return schema
}

// componentName maps a section name such as productDetails to ProductDetails.
func componentName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Section"
	}
	return b.String()
}
