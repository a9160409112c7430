package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"finitefield.org/nutricart/internal/domain"
)

// Backend is a fake upstream serving category pages with a product data island plus the
// profile endpoints.
type Backend struct {
	*httptest.Server

	mu          sync.Mutex
	catalogs    map[string][]domain.Product
	failing     map[string]int
	images      []string
	profiles    []profileEntry
	rejectImage string
	hits        map[string]int
}

type profileEntry struct{ Name, Email string }

// NewBackend starts a fake backend; it is closed with the test.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		catalogs: make(map[string][]domain.Product),
		failing:  make(map[string]int),
		hits:     make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/cart/", b.serveCategory)
	mux.HandleFunc("/cart/static/", b.serveStatic)
	mux.HandleFunc("/auth/save-profile-image", b.saveImage)
	mux.HandleFunc("/auth/get_profile_image", b.getImage)
	mux.HandleFunc("/profile", b.updateProfile)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// SetCatalog replaces the products served for category.
func (b *Backend) SetCatalog(category string, products ...domain.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[category] = products
}

// FailCategory makes category answer with status.
func (b *Backend) FailCategory(category string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[category] = status
}

// RejectImages makes image uploads answer success=false with message.
func (b *Backend) RejectImages(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectImage = message
}

// Hits returns how many times category was requested.
func (b *Backend) Hits(category string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[category]
}

// Images returns the data URLs received so far.
func (b *Backend) Images() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.images...)
}

// Profiles returns the name/email pairs received so far.
func (b *Backend) Profiles() [][2]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][2]string, 0, len(b.profiles))
	for _, p := range b.profiles {
		out = append(out, [2]string{p.Name, p.Email})
	}
	return out
}

func (b *Backend) serveCategory(w http.ResponseWriter, r *http.Request) {
	category := strings.Trim(strings.TrimPrefix(r.URL.Path, "/cart/"), "/")
	b.mu.Lock()
	b.hits[category]++
	status := b.failing[category]
	products, ok := b.catalogs[category]
	b.mu.Unlock()

	if status != 0 {
		http.Error(w, "upstream failure", status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !ok {
		fmt.Fprintf(w, "<html><body><h1>%s</h1></body></html>", html.EscapeString(category))
		return
	}
	payload, _ := json.Marshal(products)
	fmt.Fprintf(w, `<html><body><div id="products-container"></div>
<script id="products-data" type="application/json">%s</script></body></html>`, payload)
}

func (b *Backend) serveStatic(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, ".png") {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Cookie") != "" {
		http.Error(w, "unexpected cookie", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
}

func (b *Backend) saveImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<20)).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	reject := b.rejectImage
	if reject == "" {
		b.images = append(b.images, body.Image)
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if reject != "" {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": reject})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (b *Backend) getImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	name, email := r.PostForm.Get("name"), r.PostForm.Get("email")
	ok := strings.Contains(email, "@")
	if ok {
		b.mu.Lock()
		b.profiles = append(b.profiles, profileEntry{Name: name, Email: email})
		b.mu.Unlock()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": ok})
}
