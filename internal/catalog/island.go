package catalog

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"

	"finitefield.org/nutricart/internal/domain"
)

// IslandID is the id of the element carrying the JSON product list.
const IslandID = "products-data"

var textPolicy = bluemonday.StrictPolicy()

// DecodeIsland parses an HTML document and decodes the JSON array held in the #products-data
// element. A missing or blank island decodes to an empty list.
func DecodeIsland(r io.Reader) ([]domain.Product, error) {
	root, err := xhtml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	island := doc.Find("#" + IslandID).First()
	if island.Length() == 0 {
		return []domain.Product{}, nil
	}
	payload := strings.TrimSpace(island.Text())
	if payload == "" {
		return []domain.Product{}, nil
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(payload), &products); err != nil {
		return nil, fmt.Errorf("decode %s: %w", IslandID, err)
	}
	if products == nil {
		return []domain.Product{}, nil
	}
	for i := range products {
		sanitizeProduct(&products[i])
	}
	return products, nil
}

// sanitizeProduct strips markup from free-text fields; the render layer escapes again on output.
func sanitizeProduct(p *domain.Product) {
	p.Name = cleanText(p.Name)
	p.CategoryName = cleanText(p.CategoryName)
	p.Weight = cleanText(p.Weight)
	p.HealthRestrictions = cleanText(p.HealthRestrictions)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
}

func cleanText(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
