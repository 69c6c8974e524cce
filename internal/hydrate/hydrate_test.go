package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_records.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[productCard](buildOptions(tc)...)

			result, err := decoder.Decode(Context{Section: tc.Section, Key: tc.Key}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}

			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded record mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecodeDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"id": int64(4), "name": "Oyster"}
	decoder := NewDecoder[productCard](WithPreHook[productCard](stringifyIDPreHook))

	if _, err := decoder.Decode(Context{Section: "products"}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if input["id"] != int64(4) {
		t.Fatalf("pre-hook mutated the caller's record: %#v", input["id"])
	}
}

func TestDecodeNilRecord(t *testing.T) {
	_, err := NewDecoder[productCard]().Decode(Context{Section: "team", Key: "10"}, nil)
	if err == nil || !strings.Contains(err.Error(), "team/10") {
		t.Fatalf("expected nil record error naming the record, got %v", err)
	}
}

func TestDecodeAll(t *testing.T) {
	decoder := NewDecoder[productCard](
		WithPreHook[productCard](stringifyIDPreHook),
		WithPostHook[productCard](slugFromKeyPostHook),
	)
	records := []map[string]any{
		{"id": int64(1), "name": "Pearl Oyster"},
		{"id": int64(2), "name": "Lion's Mane"},
	}

	out, err := decoder.DecodeAll("productDetails", []string{"pearl-oyster"}, records)
	if err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(out) != 2 || out[0].Slug != "pearl-oyster" || out[1].Slug != "" || out[1].ID != "2" {
		t.Fatalf("unexpected results: %#v", out)
	}

	records = append(records, nil)
	if _, err := decoder.DecodeAll("productDetails", nil, records); err == nil {
		t.Fatalf("expected error for nil record")
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[productCard] {
	options := []DecoderOption[productCard]{}

	for _, optName := range tc.Options {
		switch optName {
		case "disallow_unknown":
			options = append(options, WithDisallowUnknownFields[productCard]())
		}
	}

	for _, hookName := range tc.PreHooks {
		switch hookName {
		case "stringify_id":
			options = append(options, WithPreHook[productCard](stringifyIDPreHook))
		case "require_name":
			options = append(options, WithPreHook[productCard](requireNamePreHook))
		}
	}

	for _, hookName := range tc.PostHooks {
		switch hookName {
		case "slug_from_key":
			options = append(options, WithPostHook[productCard](slugFromKeyPostHook))
		case "slug_from_name":
			options = append(options, WithPostHook[productCard](slugFromNamePostHook))
		}
	}

	if tc.CustomDecoder == "title_as_name" {
		options = append(options, WithCustomDecoder[productCard](titleAsNameDecoder))
	}

	return options
}

func stringifyIDPreHook(_ Context, record map[string]any) (map[string]any, error) {
	if id, ok := record["id"]; ok && id != nil {
		record["id"] = fmt.Sprint(id)
	}
	return record, nil
}

func requireNamePreHook(_ Context, record map[string]any) (map[string]any, error) {
	if name, _ := record["name"].(string); name == "" {
		return nil, errors.New("name is required")
	}
	return record, nil
}

func slugFromKeyPostHook(ctx Context, card *productCard) error {
	card.Slug = ctx.Key
	return nil
}

func slugFromNamePostHook(_ Context, card *productCard) error {
	card.Slug = strings.ReplaceAll(strings.ToLower(card.Name), " ", "-")
	return nil
}

func titleAsNameDecoder(ctx Context, record map[string]any) (productCard, error) {
	title, ok := record["title"].(string)
	if !ok {
		return productCard{}, fmt.Errorf("missing title for %s", ctx.Key)
	}
	return productCard{ID: ctx.Key, Name: title}, nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name          string         `json:"name"`
	Section       string         `json:"section"`
	Key           string         `json:"key"`
	Input         map[string]any `json:"input"`
	Expect        productCard    `json:"expect"`
	ExpectErr     string         `json:"expectErr"`
	PreHooks      []string       `json:"preHooks"`
	PostHooks     []string       `json:"postHooks"`
	Options       []string       `json:"options"`
	CustomDecoder string         `json:"customDecoder"`
}

type productCard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
	Slug      string `json:"slug"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	path := filepath.Join("..", "..", "testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read hydrate fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal hydrate fixture %q: %v", name, err)
	}
	return fx
}
