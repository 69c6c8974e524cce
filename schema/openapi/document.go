package openapi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var unsafeComponentChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// components collects named schemas in insertion order.
type components struct {
	names   []string
	schemas map[string]map[string]any
}

func newComponents() *components {
	return &components{schemas: map[string]map[string]any{}}
}

func (c *components) add(name string, schema map[string]any) (string, error) {
	safe := sanitizeComponentName(name)
	if safe == "" {
		return "", fmt.Errorf("openapi: invalid component name %q", name)
	}
	if _, exists := c.schemas[safe]; exists {
		return "", fmt.Errorf("openapi: duplicate component %q", safe)
	}
	c.names = append(c.names, safe)
	c.schemas[safe] = schema
	return "#/components/schemas/" + safe, nil
}

func (c *components) toMap() map[string]any {
	out := make(map[string]any, len(c.schemas))
	for _, name := range c.names {
		out[name] = c.schemas[name]
	}
	return out
}

func sanitizeComponentName(name string) string {
	return strings.Trim(unsafeComponentChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
}

type documentBuilder struct {
	config     generatorConfig
	components *components
	rootRef    string
}

func newDocumentBuilder(config generatorConfig, components *components, rootRef string) *documentBuilder {
	return &documentBuilder{config: config, components: components, rootRef: rootRef}
}

func (b *documentBuilder) build() (map[string]any, error) {
	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(),
		"components": map[string]any{
			"schemas": b.components.toMap(),
		},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

func (b *documentBuilder) buildPaths() map[string]any {
	method := strings.ToLower(b.config.operation.Method)
	if method == "" {
		method = "put"
	}
	body := map[string]any{
		b.config.contentType: map[string]any{
			"schema": map[string]any{"$ref": b.rootRef},
		},
	}

	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	responses := make(map[string]any, len(statuses))
	for _, status := range statuses {
		responses[status] = map[string]any{
			"description": b.config.responses[status],
		}
	}

	write := map[string]any{
		"operationId": b.operationID(method),
		"requestBody": map[string]any{
			"required": true,
			"content":  body,
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(b.config.operation.Summary); summary != "" {
		write["summary"] = summary
	}

	item := map[string]any{method: write}
	if method != "get" {
		item["get"] = map[string]any{
			"operationId": "getDocument",
			"responses": map[string]any{
				"200": map[string]any{
					"description": "The working document",
					"content":     body,
				},
			},
		}
	}
	return map[string]any{b.config.operation.Path: item}
}

func (b *documentBuilder) operationID(method string) string {
	if b.config.operation.OperationID != "" {
		return b.config.operation.OperationID
	}
	return fmt.Sprintf("%s:%s", method, b.config.operation.Path)
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		if !strings.HasPrefix(pathKey, "/") {
			return fmt.Errorf("openapi: path %q must start with /", pathKey)
		}
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if responses, _ := operation["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
			if method == "get" {
				continue
			}
			requestBody, _ := operation["requestBody"].(map[string]any)
			if requestBody == nil {
				return fmt.Errorf("openapi: operation %s %s missing requestBody", method, pathKey)
			}
			if content, _ := requestBody["content"].(map[string]any); len(content) == 0 {
				return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, pathKey)
			}
		}
	}
	return nil
}
