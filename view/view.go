// Package view renders read-only typed views of a content document for
// presentation code.
package view

import (
	"fmt"
	"strings"

	content "github.com/goliatone/go-content"
	"github.com/goliatone/go-content/internal/hydrate"
)

type SiteInfo struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
}

type NavItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type HeroBanner struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	CTAPrimary   string `json:"ctaPrimary"`
	CTASecondary string `json:"ctaSecondary"`
	Image        string `json:"image"`
}

type Feature struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Step struct {
	ID          string `json:"id"`
	Step        string `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Product is one entry of the product catalogue. Slug is derived from the
// name.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Available   bool   `json:"available"`
	Slug        string `json:"-"`
}

type Nutrition struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fiber    string `json:"fiber"`
}

// ProductDetail is the full page of one product, keyed by Slug.
type ProductDetail struct {
	Slug            string    `json:"-"`
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ScientificName  string    `json:"scientificName"`
	Description     string    `json:"description"`
	LongDescription string    `json:"longDescription"`
	Price           string    `json:"price"`
	Image           string    `json:"image"`
	Available       bool      `json:"available"`
	Nutrition       Nutrition `json:"nutrition"`
	CookingTips     []string  `json:"cookingTips"`
	Storage         string    `json:"storage"`
	HarvestSeason   string    `json:"harvestSeason"`
}

type AboutInfo struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

type TeamMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Bio   string `json:"bio"`
	Image string `json:"image"`
}

type ContactInfo struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Hours   string `json:"hours"`
}

// View reads typed sections out of one document.
type View struct {
	doc content.Document
}

// New returns a view of doc.
func New(doc content.Document) View {
	return View{doc: doc}
}

func (v View) Site() (SiteInfo, error) {
	return record[SiteInfo](v, content.SectionSite)
}

func (v View) Hero() (HeroBanner, error) {
	return record[HeroBanner](v, content.SectionHero)
}

func (v View) About() (AboutInfo, error) {
	return record[AboutInfo](v, content.SectionAbout)
}

func (v View) Contact() (ContactInfo, error) {
	return record[ContactInfo](v, content.SectionContact)
}

func (v View) Navigation() ([]NavItem, error) {
	return list[NavItem](v, content.SectionNavigation)
}

func (v View) Features() ([]Feature, error) {
	return list[Feature](v, content.SectionFeatures)
}

func (v View) Process() ([]Step, error) {
	return list[Step](v, content.SectionProcess)
}

func (v View) Team() ([]TeamMember, error) {
	return list[TeamMember](v, content.SectionTeam)
}

// Products returns the whole catalogue in document order.
func (v View) Products() ([]Product, error) {
	return list(v, content.SectionProducts, hydrate.WithPostHook[Product](func(_ hydrate.Context, p *Product) error {
		p.Slug = Slugify(p.Name)
		return nil
	}))
}

// AvailableProducts returns the products that are in stock.
func (v View) AvailableProducts() ([]Product, error) {
	products, err := v.Products()
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

// ProductDetails returns every product detail in insertion order.
func (v View) ProductDetails() ([]ProductDetail, error) {
	slugs := v.doc.Slugs(content.SectionProductDetails)
	keyed, _ := v.doc.Keyed(content.SectionProductDetails)
	records := make([]map[string]any, 0, len(slugs))
	for _, slug := range slugs {
		value, _ := keyed.Get(slug)
		record, _ := value.(map[string]any)
		records = append(records, record)
	}
	return detailDecoder().DecodeAll(content.SectionProductDetails, slugs, records)
}

// ProductDetail returns the detail stored under slug.
func (v View) ProductDetail(slug string) (ProductDetail, bool, error) {
	keyed, ok := v.doc.Keyed(content.SectionProductDetails)
	if !ok {
		return ProductDetail{}, false, nil
	}
	value, ok := keyed.Get(slug)
	if !ok {
		return ProductDetail{}, false, nil
	}
	record, _ := value.(map[string]any)
	detail, err := detailDecoder().Decode(hydrate.Context{Section: content.SectionProductDetails, Key: slug}, record)
	if err != nil {
		return ProductDetail{}, false, err
	}
	return detail, true, nil
}

// DetailFor finds the detail page of a catalogue product: by its slug first,
// then by matching id.
func (v View) DetailFor(p Product) (ProductDetail, bool, error) {
	detail, ok, err := v.ProductDetail(p.Slug)
	if err != nil || ok {
		return detail, ok, err
	}
	details, err := v.ProductDetails()
	if err != nil {
		return ProductDetail{}, false, err
	}
	for _, d := range details {
		if d.ID != "" && d.ID == p.ID {
			return d, true, nil
		}
	}
	return ProductDetail{}, false, nil
}

// Related returns up to limit available products other than detail.
func (v View) Related(detail ProductDetail, limit int) ([]Product, error) {
	products, err := v.AvailableProducts()
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, limit)
	for _, p := range products {
		if len(out) == limit {
			break
		}
		if p.ID == detail.ID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Slugify lowercases name and replaces spaces with dashes.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func record[T any](v View, section string) (T, error) {
	rec, ok := v.doc.Record(section)
	if !ok {
		var zero T
		return zero, fmt.Errorf("view: section %q is not a record", section)
	}
	return hydrate.NewDecoder[T]().Decode(hydrate.Context{Section: section}, rec)
}

func list[T any](v View, section string, opts ...hydrate.DecoderOption[T]) ([]T, error) {
	items, _ := v.doc.List(section)
	records := make([]map[string]any, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		rec, _ := item.(map[string]any)
		records = append(records, rec)
		keys = append(keys, idString(rec["id"]))
	}
	opts = append([]hydrate.DecoderOption[T]{hydrate.WithPreHook[T](stringifyID)}, opts...)
	return hydrate.NewDecoder(opts...).DecodeAll(section, keys, records)
}

func detailDecoder() *hydrate.Decoder[ProductDetail] {
	return hydrate.NewDecoder(
		hydrate.WithPreHook[ProductDetail](stringifyID),
		hydrate.WithPostHook[ProductDetail](func(ctx hydrate.Context, d *ProductDetail) error {
			d.Slug = ctx.Key
			return nil
		}),
	)
}

// stringifyID turns numeric and string ids alike into strings.
func stringifyID(_ hydrate.Context, rec map[string]any) (map[string]any, error) {
	if id, ok := rec["id"]; ok {
		rec["id"] = idString(id)
	}
	return rec, nil
}

func idString(id any) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}
