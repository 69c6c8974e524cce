// Package mcp exposes a content editor as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	content "github.com/goliatone/go-content"
	"github.com/goliatone/go-content/view"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const Version = "0.1.0"

// ItemArgs selects the item of a list (index) or keyed (slug) section. Both
// empty selects the record of a record section.
type ItemArgs struct {
	Index *int   `json:"index,omitempty"`
	Slug  string `json:"slug,omitempty"`
}

func (a ItemArgs) item() content.Item {
	switch {
	case a.Slug != "":
		return content.AtSlug(a.Slug)
	case a.Index != nil:
		return content.AtIndex(*a.Index)
	default:
		return content.Root
	}
}

type SectionRequest struct {
	Section string `json:"section"`
}

type FieldRequest struct {
	Section string `json:"section"`
	Path    string `json:"path"`
	ItemArgs
}

type EditFieldRequest struct {
	Section string `json:"section"`
	Path    string `json:"path"`
	// Value is the new value as text. Boolean fields take true or false.
	Value string `json:"value"`
	ItemArgs
}

type RemoveItemRequest struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
}

type RemoveKeyRequest struct {
	Section string `json:"section"`
	Slug    string `json:"slug"`
}

type AddProductDetailRequest struct {
	Slug string `json:"slug"`
	// Template holds field values merged over the default product detail.
	Template map[string]any `json:"template,omitempty"`
}

type ResetRequest struct {
	// Defaults discards the stored snapshot and restores the built-in
	// document.
	Defaults bool `json:"defaults,omitempty"`
}

type EmptyRequest struct{}

type SectionInfo struct {
	Name   string      `json:"name"`
	Label  string      `json:"label"`
	Shape  string      `json:"shape"`
	Fields []FieldInfo `json:"fields"`
	Slugs  []string    `json:"slugs,omitempty"`
	Items  int         `json:"items,omitempty"`
}

type FieldInfo struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type FieldResponse struct {
	Section string `json:"section"`
	Path    string `json:"path"`
	Item    string `json:"item"`
	Value   any    `json:"value"`
	Display string `json:"display"`
}

type ItemResponse struct {
	Section string `json:"section"`
	Index   int    `json:"index,omitempty"`
	Slug    string `json:"slug,omitempty"`
	ID      any    `json:"id,omitempty"`
}

type StatusResponse struct {
	Dirty bool `json:"dirty"`
}

// NewServer creates an MCP server with the content tools bound to editor.
func NewServer(editor *content.Editor) *server.MCPServer {
	s := server.NewMCPServer(
		"Content Editor MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	itemOptions := []mcp.ToolOption{
		mcp.WithNumber("index", mcp.Description("Zero-based item index for list sections")),
		mcp.WithString("slug", mcp.Description("Entry slug for keyed sections such as productDetails")),
	}

	s.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return the working content document as JSON"),
	), mcp.NewTypedToolHandler(getDocumentHandler(editor)))

	s.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List the document sections with their shape and editable field paths"),
	), mcp.NewTypedToolHandler(listSectionsHandler(editor)))

	s.AddTool(mcp.NewTool("read_field", append([]mcp.ToolOption{
		mcp.WithDescription("Read one field of the working document"),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Field path: name, parent.child or list.index")),
	}, itemOptions...)...), mcp.NewTypedToolHandler(readFieldHandler(editor)))

	s.AddTool(mcp.NewTool("edit_field", append([]mcp.ToolOption{
		mcp.WithDescription("Set one field and save it to the working document"),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Field path: name, parent.child or list.index")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value as text; boolean fields take true or false")),
	}, itemOptions...)...), mcp.NewTypedToolHandler(editFieldHandler(editor)))

	s.AddTool(mcp.NewTool("add_item",
		mcp.WithDescription("Append a template item to a list section"),
		mcp.WithString("section", mcp.Required(), mcp.Description("List section name")),
	), mcp.NewTypedToolHandler(addItemHandler(editor)))

	s.AddTool(mcp.NewTool("remove_item",
		mcp.WithDescription("Remove the item at index from a list section"),
		mcp.WithString("section", mcp.Required(), mcp.Description("List section name")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based item index")),
	), mcp.NewTypedToolHandler(removeItemHandler(editor)))

	s.AddTool(mcp.NewTool("remove_key",
		mcp.WithDescription("Remove one entry of a keyed section"),
		mcp.WithString("section", mcp.Required(), mcp.Description("Keyed section name")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Entry slug")),
	), mcp.NewTypedToolHandler(removeKeyHandler(editor)))

	s.AddTool(mcp.NewTool("add_product_detail",
		mcp.WithDescription("Create a product detail page under a new slug"),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the new entry, e.g. golden-oyster")),
		mcp.WithObject("template", mcp.Description("Field values merged over the default product detail")),
	), mcp.NewTypedToolHandler(addProductDetailHandler(editor)))

	s.AddTool(mcp.NewTool("commit",
		mcp.WithDescription("Store the working document"),
	), mcp.NewTypedToolHandler(commitHandler(editor)))

	s.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Discard unsaved changes, or restore the built-in document when defaults is true"),
		mcp.WithBoolean("defaults", mcp.Description("Remove the stored snapshot and restore the built-in document")),
	), mcp.NewTypedToolHandler(resetHandler(editor)))

	return s
}

func getDocumentHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
		data, err := editor.GetDocument().MarshalJSON()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode document: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func listSectionsHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
		doc := editor.GetDocument()
		registry := editor.Registry()
		var sections []SectionInfo
		for _, desc := range registry.Sections() {
			paths, err := registry.Fields(desc.Name)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			info := SectionInfo{Name: desc.Name, Label: desc.Label, Shape: desc.Shape.String()}
			for _, p := range paths {
				info.Fields = append(info.Fields, FieldInfo{Path: p.Path, Label: p.Label, Kind: p.Kind.String()})
			}
			switch desc.Shape {
			case content.ShapeList:
				list, _ := doc.List(desc.Name)
				info.Items = len(list)
			case content.ShapeKeyed:
				info.Slugs = doc.Slugs(desc.Name)
			}
			sections = append(sections, info)
		}
		return jsonResult(sections)
	}
}

func readFieldHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args FieldRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args FieldRequest) (*mcp.CallToolResult, error) {
		if args.Section == "" || args.Path == "" {
			return mcp.NewToolResultError("section and path are required"), nil
		}
		item := args.item()
		value, err := editor.Read(args.Section, args.Path, item)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read field: %v", err)), nil
		}
		return jsonResult(FieldResponse{
			Section: args.Section,
			Path:    args.Path,
			Item:    item.String(),
			Value:   value,
			Display: view.Display(value),
		})
	}
}

func editFieldHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args EditFieldRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args EditFieldRequest) (*mcp.CallToolResult, error) {
		if args.Section == "" || args.Path == "" {
			return mcp.NewToolResultError("section and path are required"), nil
		}
		item := args.item()
		value, err := CoerceText(editor, args.Section, args.Path, item, args.Value)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		doc, err := editor.Edit(ctx, args.Section, args.Path, item, value)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to edit field: %v", err)), nil
		}
		saved, err := content.Read(doc, args.Section, args.Path, item)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(FieldResponse{
			Section: args.Section,
			Path:    args.Path,
			Item:    item.String(),
			Value:   saved,
			Display: view.Display(saved),
		})
	}
}

func addItemHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args SectionRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SectionRequest) (*mcp.CallToolResult, error) {
		if args.Section == "" {
			return mcp.NewToolResultError("section is required"), nil
		}
		doc, err := editor.AddItem(ctx, args.Section)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to add item: %v", err)), nil
		}
		list, _ := doc.List(args.Section)
		index := len(list) - 1
		id, _ := content.Read(doc, args.Section, "id", content.AtIndex(index))
		return jsonResult(ItemResponse{Section: args.Section, Index: index, ID: id})
	}
}

func removeItemHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args RemoveItemRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args RemoveItemRequest) (*mcp.CallToolResult, error) {
		if args.Section == "" {
			return mcp.NewToolResultError("section is required"), nil
		}
		if _, err := editor.RemoveItem(ctx, args.Section, args.Index); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to remove item: %v", err)), nil
		}
		return jsonResult(ItemResponse{Section: args.Section, Index: args.Index})
	}
}

func removeKeyHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args RemoveKeyRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args RemoveKeyRequest) (*mcp.CallToolResult, error) {
		if args.Section == "" || args.Slug == "" {
			return mcp.NewToolResultError("section and slug are required"), nil
		}
		if _, err := editor.RemoveKey(ctx, args.Section, args.Slug); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to remove key: %v", err)), nil
		}
		return jsonResult(ItemResponse{Section: args.Section, Slug: args.Slug})
	}
}

func addProductDetailHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args AddProductDetailRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args AddProductDetailRequest) (*mcp.CallToolResult, error) {
		doc, err := editor.AddProductDetail(ctx, args.Slug, args.Template)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to add product detail: %v", err)), nil
		}
		id, _ := content.Read(doc, content.SectionProductDetails, "id", content.AtSlug(args.Slug))
		return jsonResult(ItemResponse{Section: content.SectionProductDetails, Slug: args.Slug, ID: id})
	}
}

func commitHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
		if err := editor.Commit(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to commit: %v", err)), nil
		}
		return jsonResult(StatusResponse{Dirty: editor.Dirty()})
	}
}

func resetHandler(editor *content.Editor) func(ctx context.Context, request mcp.CallToolRequest, args ResetRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ResetRequest) (*mcp.CallToolResult, error) {
		var err error
		if args.Defaults {
			_, err = editor.ResetToDefaults(ctx)
		} else {
			_, err = editor.Reset(ctx)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to reset: %v", err)), nil
		}
		return jsonResult(StatusResponse{Dirty: editor.Dirty()})
	}
}

// CoerceText turns text input into the value type of the target field. Only
// booleans need converting; numbers are parsed by the edit session.
func CoerceText(editor *content.Editor, section, path string, item content.Item, text string) (any, error) {
	isBool := false
	if desc, ok := editor.Registry().Lookup(section); ok {
		if addr, err := content.ParseAddress(path); err == nil {
			if field, ok := desc.Describe(addr); ok {
				isBool = field.Kind == content.KindBool
			}
		}
	}
	if !isBool {
		current, err := editor.Read(section, path, item)
		if err != nil {
			return nil, fmt.Errorf("failed to read field: %w", err)
		}
		_, isBool = current.(bool)
	}
	if !isBool {
		return text, nil
	}
	b, err := strconv.ParseBool(text)
	if err != nil {
		return nil, fmt.Errorf("field %s.%s takes true or false, got %q", section, path, text)
	}
	return b, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
