package catalog

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"finitefield.org/nutricart/internal/domain"
)

// DefaultCategory is used when the navigation path carries no category.
const DefaultCategory = "snacks"

const (
	staticPrefix     = "/cart/static"
	productImageRoot = "/cart/static/images/products"
	// PlaceholderImage replaces product images that fail to load.
	PlaceholderImage = "/cart/static/images/no-image.png"
)

// Category is a browsable product category.
type Category struct {
	Slug  string `yaml:"slug"`
	Title string `yaml:"title"`
}

// Registry lists the categories the storefront serves.
type Registry struct {
	categories []Category
	bySlug     map[string]Category
	fallback   string
}

var defaultCategories = []Category{
	{Slug: "snacks", Title: "Snacks"},
	{Slug: "breakfast", Title: "Breakfast"},
	{Slug: "chocolates", Title: "Chocolates"},
	{Slug: "cold-drinks-and-juices", Title: "Cold Drinks & Juices"},
	{Slug: "drinks", Title: "Drinks"},
	{Slug: "dairy", Title: "Dairy"},
	{Slug: "instant", Title: "Instant Food"},
	{Slug: "groceries", Title: "Groceries"},
	{Slug: "supplements", Title: "Supplements"},
}

// HealthOptions lists the selectable health conditions; "normal" disables filtering.
var HealthOptions = []Category{
	{Slug: HealthNormal, Title: "Normal"},
	{Slug: "diabetes", Title: "Diabetes"},
	{Slug: "heart", Title: "Heart"},
	{Slug: "obesity", Title: "Obesity"},
	{Slug: "hypertension", Title: "Hypertension"},
}

// DefaultRegistry returns the built-in category list.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(defaultCategories, DefaultCategory)
	return r
}

// NewRegistry builds a registry. fallback must be one of the categories.
func NewRegistry(categories []Category, fallback string) (*Registry, error) {
	r := &Registry{bySlug: make(map[string]Category, len(categories))}
	for _, c := range categories {
		slug := strings.ToLower(strings.TrimSpace(c.Slug))
		if slug == "" {
			return nil, fmt.Errorf("catalog: category without slug")
		}
		if _, dup := r.bySlug[slug]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %q", slug)
		}
		c.Slug = slug
		if strings.TrimSpace(c.Title) == "" {
			c.Title = slug
		}
		r.categories = append(r.categories, c)
		r.bySlug[slug] = c
	}
	if len(r.categories) == 0 {
		return nil, fmt.Errorf("catalog: no categories configured")
	}
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = r.categories[0].Slug
	}
	if _, ok := r.bySlug[fallback]; !ok {
		return nil, fmt.Errorf("catalog: default category %q is not configured", fallback)
	}
	r.fallback = fallback
	return r, nil
}

type registryFile struct {
	Default    string     `yaml:"default"`
	Categories []Category `yaml:"categories"`
}

// LoadRegistry reads a YAML category file. An empty path returns the built-in registry with
// fallback as its default.
func LoadRegistry(file, fallback string) (*Registry, error) {
	if strings.TrimSpace(file) == "" {
		return NewRegistry(defaultCategories, fallback)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("catalog: read categories: %w", err)
	}
	var parsed registryFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("catalog: parse categories: %w", err)
	}
	if parsed.Default == "" {
		parsed.Default = fallback
	}
	return NewRegistry(parsed.Categories, parsed.Default)
}

// Categories returns the categories in configured order.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Default returns the fallback category slug.
func (r *Registry) Default() string { return r.fallback }

// Lookup finds a category by slug.
func (r *Registry) Lookup(slug string) (Category, bool) {
	c, ok := r.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	return c, ok
}

// CategoryFromPath derives the category token from a navigation path such as "/shop/dairy" or
// "/cart/dairy". An empty remainder yields the default category.
func (r *Registry) CategoryFromPath(p string) string {
	p = strings.Trim(p, "/")
	switch {
	case p == "shop" || p == "cart":
		p = ""
	case strings.HasPrefix(p, "shop/"):
		p = strings.TrimPrefix(p, "shop/")
	case strings.HasPrefix(p, "cart/"):
		p = strings.TrimPrefix(p, "cart/")
	}
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return r.fallback
	}
	return strings.ToLower(p)
}

// ImageURL resolves the display URL of a product image: paths already under the static prefix
// are kept, bare filenames are placed under the category's image directory.
func ImageURL(p domain.Product) string {
	src := strings.TrimSpace(p.ImageURL)
	if src == "" {
		return PlaceholderImage
	}
	if strings.HasPrefix(src, staticPrefix) || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	category := strings.ToLower(strings.TrimSpace(p.CategoryName))
	return path.Join(productImageRoot, category, path.Base(src))
}
