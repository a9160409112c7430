package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Product is a catalog entry served by the backend. Products are read-only on the storefront and
// are never persisted locally.
type Product struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Price              float64 `json:"price"`
	CategoryName       string  `json:"category_name"`
	Weight             string  `json:"weight"`
	Fat                float64 `json:"fat"`
	Sugars             float64 `json:"sugars"`
	Sodium             float64 `json:"sodium"`
	HealthRestrictions string  `json:"health_restrictions"`
	ImageURL           string  `json:"image_url"`
}

// RestrictionTags splits the comma separated health restriction field into trimmed, non-empty tags.
func (p Product) RestrictionTags() []string {
	if strings.TrimSpace(p.HealthRestrictions) == "" {
		return nil
	}
	parts := strings.Split(p.HealthRestrictions, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// RestrictedFor reports whether the product carries the given health restriction tag, ignoring case.
func (p Product) RestrictedFor(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range p.RestrictionTags() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts the shapes the backend emits for numeric columns: plain numbers, decimal
// strings ("120.00") and nulls. Weight may arrive as a number or free text.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                 flexNumber `json:"id"`
		Name               flexString `json:"name"`
		Price              flexNumber `json:"price"`
		CategoryName       flexString `json:"category_name"`
		Weight             flexString `json:"weight"`
		Fat                flexNumber `json:"fat"`
		Sugars             flexNumber `json:"sugars"`
		Sodium             flexNumber `json:"sodium"`
		HealthRestrictions flexString `json:"health_restrictions"`
		ImageURL           flexString `json:"image_url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product{
		ID:                 int64(raw.ID),
		Name:               string(raw.Name),
		Price:              float64(raw.Price),
		CategoryName:       string(raw.CategoryName),
		Weight:             string(raw.Weight),
		Fat:                float64(raw.Fat),
		Sugars:             float64(raw.Sugars),
		Sodium:             float64(raw.Sodium),
		HealthRestrictions: string(raw.HealthRestrictions),
		ImageURL:           string(raw.ImageURL),
	}
	return nil
}

// CartLine is one product's aggregated entry in the cart. Name, price and image are snapshots
// taken when the product was first added, so totals stay stable when catalog prices change.
type CartLine struct {
	ProductID int64   `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"image_url"`
}

// Subtotal returns unit price × quantity.
func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// LineFromProduct snapshots a product into a new cart line with quantity 1.
func LineFromProduct(p Product) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  1,
		ImageURL:  p.ImageURL,
	}
}

type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("domain: invalid numeric value %q", s)
		}
		*n = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	// numbers and booleans keep their literal text, e.g. weight 250 -> "250"
	if data[0] == '{' || data[0] == '[' {
		return fmt.Errorf("domain: expected scalar, got %s", string(data))
	}
	*s = flexString(string(data))
	return nil
}
