package content

import (
	"sync"

	"github.com/goliatone/go-content/pkg/rules"
)

// Section names of the built-in registry.
const (
	SectionSite           = "site"
	SectionNavigation     = "navigation"
	SectionHero           = "hero"
	SectionFeatures       = "features"
	SectionProcess        = "process"
	SectionProducts       = "products"
	SectionAbout          = "about"
	SectionTeam           = "team"
	SectionContact        = "contact"
	SectionProductDetails = "productDetails"
)

var (
	priceRule = &rules.Rule{
		Engine:  rules.EngineExpr,
		Expr:    `value == "" || value matches "^\\$?[0-9]+(\\.[0-9]{1,2})?$"`,
		Message: "price must look like $12.95",
	}
	emailRule = &rules.Rule{
		Engine:  rules.EngineCEL,
		Expr:    `value == "" || value.contains("@")`,
		Message: "email must contain @",
	}
)

var defaultRegistry = sync.OnceValue(func() *Registry {
	reg, err := NewRegistry(builtinSections()...)
	if err != nil {
		panic(err)
	}
	return reg
})

// DefaultRegistry returns the registry of the built-in site document.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

func idField() Field {
	return Field{Name: "id", Label: "ID", Kind: KindID}
}

func builtinSections() []Section {
	return []Section{
		{
			Name:  SectionSite,
			Label: "Site",
			Shape: ShapeRecord,
			Fields: []Field{
				{Name: "name", Label: "Site Name", Kind: KindString},
				{Name: "tagline", Label: "Tagline", Kind: KindString},
			},
		},
		{
			Name:  SectionNavigation,
			Label: "Navigation",
			Shape: ShapeList,
			Fields: []Field{
				idField(),
				{Name: "name", Label: "Label", Kind: KindString},
				{Name: "path", Label: "Path", Kind: KindString},
			},
		},
		{
			Name:  SectionHero,
			Label: "Hero",
			Shape: ShapeRecord,
			Fields: []Field{
				{Name: "title", Label: "Title", Kind: KindString},
				{Name: "subtitle", Label: "Subtitle", Kind: KindText},
				{Name: "ctaPrimary", Label: "Primary Button", Kind: KindString},
				{Name: "ctaSecondary", Label: "Secondary Button", Kind: KindString},
				{Name: "image", Label: "Background Image", Kind: KindImage},
			},
		},
		{
			Name:  SectionFeatures,
			Label: "Features",
			Shape: ShapeList,
			Fields: []Field{
				idField(),
				{Name: "title", Label: "Title", Kind: KindString},
				{Name: "description", Label: "Description", Kind: KindText},
			},
		},
		{
			Name:  SectionProcess,
			Label: "Growing Process",
			Shape: ShapeList,
			Fields: []Field{
				idField(),
				{Name: "step", Label: "Step", Kind: KindString},
				{Name: "title", Label: "Title", Kind: KindString},
				{Name: "description", Label: "Description", Kind: KindText},
				{Name: "image", Label: "Image", Kind: KindImage},
			},
		},
		{
			Name:  SectionProducts,
			Label: "Products",
			Shape: ShapeList,
			Fields: []Field{
				idField(),
				{Name: "name", Label: "Name", Kind: KindString},
				{Name: "description", Label: "Description", Kind: KindText},
				{Name: "price", Label: "Price", Kind: KindString, Rule: priceRule},
				{Name: "image", Label: "Image", Kind: KindImage},
				{Name: "available", Label: "Available", Kind: KindBool, Default: true},
			},
		},
		{
			Name:  SectionAbout,
			Label: "About",
			Shape: ShapeRecord,
			Fields: []Field{
				{Name: "title", Label: "Title", Kind: KindString},
				{Name: "content", Label: "Content", Kind: KindText},
				{Name: "image", Label: "Image", Kind: KindImage},
			},
		},
		{
			Name:  SectionTeam,
			Label: "Team",
			Shape: ShapeList,
			Fields: []Field{
				idField(),
				{Name: "name", Label: "Name", Kind: KindString},
				{Name: "role", Label: "Role", Kind: KindString},
				{Name: "bio", Label: "Bio", Kind: KindText},
				{Name: "image", Label: "Photo", Kind: KindImage},
			},
		},
		{
			Name:  SectionContact,
			Label: "Contact",
			Shape: ShapeRecord,
			Fields: []Field{
				{Name: "email", Label: "Email", Kind: KindString, Rule: emailRule},
				{Name: "phone", Label: "Phone", Kind: KindString},
				{Name: "address", Label: "Address", Kind: KindText},
				{Name: "hours", Label: "Hours", Kind: KindString},
			},
		},
		{
			Name:  SectionProductDetails,
			Label: "Product Details",
			Shape: ShapeKeyed,
			Fields: []Field{
				idField(),
				{Name: "name", Label: "Name", Kind: KindString},
				{Name: "scientificName", Label: "Scientific Name", Kind: KindString},
				{Name: "description", Label: "Short Description", Kind: KindText},
				{Name: "longDescription", Label: "Full Description", Kind: KindText},
				{Name: "price", Label: "Price", Kind: KindString, Rule: priceRule},
				{Name: "image", Label: "Image", Kind: KindImage},
				{Name: "available", Label: "Available", Kind: KindBool, Default: true},
				{Name: "nutrition", Label: "Nutrition", Kind: KindRecord, Fields: []Field{
					{Name: "calories", Label: "Calories", Kind: KindString},
					{Name: "protein", Label: "Protein", Kind: KindString},
					{Name: "carbs", Label: "Carbs", Kind: KindString},
					{Name: "fiber", Label: "Fiber", Kind: KindString},
				}},
				{Name: "cookingTips", Label: "Cooking Tips", Kind: KindStringList, Default: []any{""}},
				{Name: "storage", Label: "Storage", Kind: KindText},
				{Name: "harvestSeason", Label: "Harvest Season", Kind: KindString},
			},
		},
	}
}
