package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	content "github.com/goliatone/go-content"
	"github.com/goliatone/go-content/mcp"
	"github.com/goliatone/go-content/schema/openapi"
	"github.com/goliatone/go-content/view"
	"github.com/spf13/cobra"
)

type itemFlags struct {
	index int
	slug  string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.index, "index", "i", -1, "Item index in a list section")
	cmd.Flags().StringVarP(&f.slug, "slug", "s", "", "Entry slug in a keyed section")
}

func (f itemFlags) item() content.Item {
	switch {
	case f.slug != "":
		return content.AtSlug(f.slug)
	case f.index >= 0:
		return content.AtIndex(f.index)
	default:
		return content.Root
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [section]",
		Short: "Print the stored document or one section as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				doc := editor.GetDocument()
				var (
					data []byte
					err  error
				)
				if len(args) == 0 {
					data, err = doc.MarshalJSON()
					if err == nil {
						data, err = indent(data)
					}
				} else {
					section, ok := doc.Section(args[0])
					if !ok {
						return fmt.Errorf("unknown section %q", args[0])
					}
					data, err = json.MarshalIndent(section, "", "  ")
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var flags itemFlags
	cmd := &cobra.Command{
		Use:   "get <section> <path>",
		Short: "Print one field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				value, err := editor.Read(args[0], args[1], flags.item())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), view.Display(value))
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var flags itemFlags
	cmd := &cobra.Command{
		Use:   "set <section> <path> <value>",
		Short: "Set one field and commit the document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				item := flags.item()
				value, err := mcp.CoerceText(editor, args[0], args[1], item, args[2])
				if err != nil {
					return err
				}
				if _, err := editor.Edit(ctx, args[0], args[1], item, value); err != nil {
					return err
				}
				return editor.Commit(ctx)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <section>",
		Short: "Append a template item to a list section and commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				doc, err := editor.AddItem(ctx, args[0])
				if err != nil {
					return err
				}
				if err := editor.Commit(ctx); err != nil {
					return err
				}
				list, _ := doc.List(args[0])
				index := len(list) - 1
				id, _ := content.Read(doc, args[0], "id", content.AtIndex(index))
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s[%d] id=%s\n", args[0], index, view.Display(id))
				return err
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <section> <index>",
		Short: "Remove an item from a list section and commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be a number: %w", err)
			}
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				if _, err := editor.RemoveItem(ctx, args[0], index); err != nil {
					return err
				}
				return editor.Commit(ctx)
			})
		},
	}
}

func newRemoveKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-key <section> <slug>",
		Short: "Remove an entry from a keyed section and commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				if _, err := editor.RemoveKey(ctx, args[0], args[1]); err != nil {
					return err
				}
				return editor.Commit(ctx)
			})
		},
	}
}

func newAddDetailCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add-detail <slug>",
		Short: "Create a product detail page and commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				var template map[string]any
				if name != "" {
					template = map[string]any{"name": name}
				}
				if _, err := editor.AddProductDetail(ctx, args[0], template); err != nil {
					return err
				}
				return editor.Commit(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Product name")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the stored document and restore the built-in one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEditor(cmd, func(ctx context.Context, editor *content.Editor) error {
				_, err := editor.ResetToDefaults(ctx)
				return err
			})
		},
	}
}

func indent(data []byte) ([]byte, error) {
	var out json.RawMessage = data
	return json.MarshalIndent(out, "", "  ")
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the OpenAPI description of the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openapi.NewGenerator().Generate(content.DefaultRegistry())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
