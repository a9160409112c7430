package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses a page or fragment into a goquery document for assertions.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// Text returns the selection's text with runs of whitespace collapsed, which keeps assertions
// independent of template indentation.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Texts applies Text to every matched element.
func Texts(s *goquery.Selection) []string {
	return s.Map(func(_ int, el *goquery.Selection) string { return Text(el) })
}
