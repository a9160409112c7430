package render

import (
	"context"
	"strconv"

	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/domain"
	"finitefield.org/nutricart/internal/notify"
)

// ProductCard is one tile of the product grid.
type ProductCard struct {
	ID     int64
	Name   string
	Price  string
	Weight string
	Fat    string
	Sugars string
	Sodium string
	Image  string
}

// GridView is the product grid in one of its states.
type GridView struct {
	Category string
	State    catalog.State
	Message  string
	Products []ProductCard
}

// Loading reports whether the grid shows the loading indicator.
func (v GridView) Loading() bool {
	return v.State == catalog.StateLoading || v.State == catalog.StateIdle
}

// Failed reports whether the grid shows the load error.
func (v GridView) Failed() bool { return v.State == catalog.StateFailed }

// CartRow is one line of the cart panel.
type CartRow struct {
	ID       int64
	Name     string
	Price    string
	Quantity int
	Subtotal string
	Image    string
}

// CartView is the cart panel.
type CartView struct {
	Rows    []CartRow
	Count   int
	Total   string
	Empty   bool
	Message string
	Warning string
}

// DrawerView wraps the cart panel in the side drawer.
type DrawerView struct {
	Open bool
	Cart CartView
}

// ToastsView lists live toasts.
type ToastsView struct {
	Toasts []notify.Toast
}

// Option is a select entry.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// ProfileView backs the profile form fragment.
type ProfileView struct {
	Name        string
	Email       string
	ImageSource string
	Pending     bool
	MaxUpload   string

	// Uploaded labels the file accepted by the last upload, e.g. "me.png (1.5 KB)".
	Uploaded string
}

// Layout is the document shell shared by full pages: head, navigation, drawer and toasts.
// CSRFToken is sent on every htmx request through hx-headers.
type Layout struct {
	Title      string
	Lang       string
	CSRFToken  string
	Categories []Option
	Drawer     DrawerView
	Toasts     ToastsView
}

// PageView is the full category page.
type PageView struct {
	Layout
	Category string
	Health   []Option
	Sorts    []Option
	Grid     GridView
}

// ProfilePageView is the profile form inside the page shell.
type ProfilePageView struct {
	Layout
	Profile ProfileView
}

var sortLabels = map[catalog.SortKey]string{
	catalog.SortPriceHighLow:  "Price: High to Low",
	catalog.SortPriceLowHigh:  "Price: Low to High",
	catalog.SortWeightHighLow: "Weight: High to Low",
	catalog.SortWeightLowHigh: "Weight: Low to High",
}

// Grid builds the grid for the given load state. products is the already filtered and sorted
// view; it is ignored unless the state is ready.
func (r *Renderer) Grid(ctx context.Context, category string, state catalog.State, products []domain.Product) GridView {
	v := GridView{Category: category, State: state}
	switch state {
	case catalog.StateFailed:
		v.Message = MsgLoadFailed
		return v
	case catalog.StateReady:
	default:
		v.Message = MsgLoading
		return v
	}
	if len(products) == 0 {
		v.Message = MsgNoMatches
		return v
	}
	money := r.moneyFor(ctx)
	v.Products = make([]ProductCard, 0, len(products))
	for _, p := range products {
		v.Products = append(v.Products, ProductCard{
			ID:     p.ID,
			Name:   p.Name,
			Price:  money.Format(p.Price),
			Weight: p.Weight,
			Fat:    trimNumber(p.Fat) + "g",
			Sugars: trimNumber(p.Sugars) + "g",
			Sodium: trimNumber(p.Sodium) + "mg",
			Image:  catalog.ImageURL(p),
		})
	}
	return v
}

// Cart builds the cart panel. Rows come from the line snapshots alone, so lines whose product
// is absent from the current catalog still render.
func (r *Renderer) Cart(ctx context.Context, lines []domain.CartLine, degraded bool) CartView {
	money := r.moneyFor(ctx)
	var v CartView
	if degraded {
		v.Warning = MsgNotSaved
	}
	var total float64
	for _, l := range lines {
		v.Count += l.Quantity
		total += l.Subtotal()
		v.Rows = append(v.Rows, CartRow{
			ID:       l.ProductID,
			Name:     l.Name,
			Price:    money.Format(l.Price),
			Quantity: l.Quantity,
			Subtotal: money.Format(l.Subtotal()),
			Image:    lineImage(l),
		})
	}
	v.Total = money.Format(total)
	if len(lines) == 0 {
		v.Empty = true
		v.Message = MsgCartEmpty
	}
	return v
}

// SortOptions lists the orderings with selected marked.
func SortOptions(selected catalog.SortKey) []Option {
	out := []Option{{Value: "", Label: "Sort by", Selected: selected == catalog.SortNone}}
	for _, k := range catalog.SortKeys {
		out = append(out, Option{Value: string(k), Label: sortLabels[k], Selected: k == selected})
	}
	return out
}

// HealthOptions lists the health filters with selected marked.
func HealthOptions(selected string) []Option {
	if selected == "" {
		selected = catalog.HealthNormal
	}
	out := make([]Option, 0, len(catalog.HealthOptions))
	for _, h := range catalog.HealthOptions {
		out = append(out, Option{Value: h.Slug, Label: h.Title, Selected: h.Slug == selected})
	}
	return out
}

// CategoryOptions lists the categories with selected marked.
func CategoryOptions(reg *catalog.Registry, selected string) []Option {
	cats := reg.Categories()
	out := make([]Option, 0, len(cats))
	for _, c := range cats {
		out = append(out, Option{Value: c.Slug, Label: c.Title, Selected: c.Slug == selected})
	}
	return out
}

func lineImage(l domain.CartLine) string {
	if l.ImageURL == "" {
		return catalog.PlaceholderImage
	}
	return l.ImageURL
}

func trimNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
