package catalog

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"finitefield.org/nutricart/internal/domain"
)

// HealthNormal is the health selection that disables filtering.
const HealthNormal = "normal"

// SortKey selects the ordering of the product view.
type SortKey string

const (
	SortNone          SortKey = ""
	SortPriceHighLow  SortKey = "price-high-low"
	SortPriceLowHigh  SortKey = "price-low-high"
	SortWeightHighLow SortKey = "weight-high-low"
	SortWeightLowHigh SortKey = "weight-low-high"
)

// SortKeys lists the selectable orderings in display order.
var SortKeys = []SortKey{SortPriceHighLow, SortPriceLowHigh, SortWeightHighLow, SortWeightLowHigh}

// ParseSortKey normalises user input; unknown values fall back to catalog order.
func ParseSortKey(raw string) SortKey {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	for _, k := range SortKeys {
		if k == key {
			return k
		}
	}
	return SortNone
}

// View derives the displayed products from the full catalog. The input is never modified and
// every ordering is stable, so equal keys keep catalog order.
func View(products []domain.Product, health string, key SortKey) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	health = strings.TrimSpace(health)
	for _, p := range products {
		if health != "" && !strings.EqualFold(health, HealthNormal) && p.RestrictedFor(health) {
			continue
		}
		out = append(out, p)
	}

	switch key {
	case SortPriceHighLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortPriceLowHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortWeightHighLow:
		sortByWeight(out, true)
	case SortWeightLowHigh:
		sortByWeight(out, false)
	}
	return out
}

// sortByWeight orders by the parsed weight; unparseable weights always go last.
func sortByWeight(products []domain.Product, desc bool) {
	type weighted struct {
		product domain.Product
		weight  float64
	}
	items := make([]weighted, len(products))
	for i, p := range products {
		items[i] = weighted{product: p, weight: ParseWeight(p.Weight)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].weight, items[j].weight
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case desc:
			return a > b
		default:
			return a < b
		}
	})
	for i := range items {
		products[i] = items[i].product
	}
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseWeight returns the leading numeric portion of a weight label ("50g" → 50, " 1.5 kg" →
// 1.5). Labels without a leading number yield NaN.
func ParseWeight(label string) float64 {
	m := leadingNumber.FindString(strings.TrimSpace(label))
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
