// Package catalog fetches category product lists from the backend and derives the filtered,
// sorted view shown on a category page.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finitefield.org/nutricart/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Kind classifies fetch failures.
type Kind string

const (
	// KindNetwork covers transport errors and non-success statuses.
	KindNetwork Kind = "network"
	// KindDecode covers malformed embedded catalog data.
	KindDecode Kind = "decode"
)

// FetchError reports why a category could not be loaded. Both kinds are shown to visitors as the
// same generic load failure.
type FetchError struct {
	Kind     Kind
	Category string
	Status   int
	Err      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog: %s failure loading %q (status %d): %v", e.Kind, e.Category, e.Status, e.Err)
	}
	return fmt.Sprintf("catalog: %s failure loading %q: %v", e.Kind, e.Category, e.Err)
}

// Unwrap exposes the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is a catalog load failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Client retrieves category pages from the backend.
type Client struct {
	base   *url.URL
	client HTTPClient
}

// NewClient constructs a Client for the backend at baseURL. A nil client gets a default
// http.Client with a conservative timeout.
func NewClient(baseURL string, client HTTPClient) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("catalog: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse base URL: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: parsed, client: client}, nil
}

// Fetch issues a single GET /cart/{category} and decodes the product data island from the
// returned HTML document. There is no retry.
func (c *Client) Fetch(ctx context.Context, category string) ([]domain.Product, error) {
	category = strings.TrimSpace(category)
	endpoint := c.base.JoinPath("cart", category)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Category: category, Err: err}
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Category: category, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind:     KindNetwork,
			Category: category,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("unexpected status: %s", drainError(resp.Body)),
		}
	}

	products, err := DecodeIsland(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Kind: KindDecode, Category: category, Err: err}
	}
	return products, nil
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
