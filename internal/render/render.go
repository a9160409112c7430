// Package render projects storefront state into HTML fragments. It holds no state of its own:
// every call renders exactly what it is given.
package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"sync"

	"golang.org/x/text/language"

	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/format"
	mw "finitefield.org/nutricart/internal/middleware"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// User-facing copy.
const (
	MsgLoading      = "Loading products..."
	MsgLoadFailed   = "Unable to load products. Please try again later."
	MsgNoMatches    = "No products found matching the selected filters"
	MsgCartEmpty    = "Your cart is empty"
	MsgAdded        = "Product added to cart!"
	MsgRemoved      = "Product removed from cart!"
	MsgCleared      = "Cart cleared!"
	MsgNotSaved     = "Your cart changes may not be saved on this device."
	MsgImageSaved   = "Image uploaded successfully!"
	MsgProfileSaved = "Profile updated successfully!"
	MsgProfileError = "Failed to update profile. Please try again."
)

// Fragment names.
const (
	FragPage        = "page"
	FragProfilePage = "profile_page"
	FragProductGrid = "product_grid"
	FragCartPanel   = "cart_panel"
	FragCartBadge   = "cart_badge"
	FragToasts      = "toasts"
	FragDrawer      = "drawer"
	FragProfile     = "profile_form"
)

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl  *template.Template
	money *format.Money

	mu       sync.Mutex
	byLocale map[language.Tag]*format.Money
}

// New parses the embedded templates. money is the formatter for requests without a negotiated
// locale; its currency is used for every locale.
func New(money *format.Money) (*Renderer, error) {
	if money == nil {
		money = format.NewMoney(format.DefaultLocale, format.DefaultCurrency)
	}
	funcs := template.FuncMap{
		"placeholder": func() string { return catalog.PlaceholderImage },
	}
	tmpl, err := template.New("_root").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, money: money, byLocale: map[language.Tag]*format.Money{}}, nil
}

// moneyFor returns the formatter for the locale negotiated on ctx.
func (r *Renderer) moneyFor(ctx context.Context) *format.Money {
	tag := mw.Locale(ctx, r.money.Locale())
	if tag == r.money.Locale() {
		return r.money
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byLocale[tag]
	if !ok {
		m = format.NewMoney(tag.String(), r.money.Currency())
		r.byLocale[tag] = m
	}
	return m
}

// Execute renders the named fragment.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render: %s: %w", name, err)
	}
	return nil
}
