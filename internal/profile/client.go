// Package profile talks to the backend's profile endpoints: image upload, image retrieval and the
// name/email form.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	saveImagePath = "/auth/save-profile-image"
	getImagePath  = "/auth/get_profile_image"
	updatePath    = "/profile"

	defaultTimeout = 10 * time.Second
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is the backend profile API.
type Client struct {
	base   *url.URL
	client HTTPClient
}

// NewClient constructs a Client for the backend at baseURL.
func NewClient(baseURL string, client HTTPClient) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("profile: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("profile: parse base URL: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		base:   parsed,
		client: client,
	}, nil
}

type ackPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SaveImage uploads an image encoded as a data URL. A reply with success=false is returned as a
// *RejectionError carrying the backend's message.
func (c *Client) SaveImage(ctx context.Context, dataURL string) error {
	if strings.TrimSpace(dataURL) == "" {
		return errors.New("profile: no image data provided")
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, saveImagePath, map[string]string{"image": dataURL})
	if err != nil {
		return err
	}
	ack, err := c.ack(req, "save image")
	if err != nil {
		return err
	}
	if !ack.Success {
		return &RejectionError{Op: "save image", Message: ack.Message}
	}
	return nil
}

// ImageURL returns the profile image path with a cache-busting query so browsers refetch after an
// upload.
func (c *Client) ImageURL(now time.Time) string {
	return getImagePath + "?" + strconv.FormatInt(now.UnixMilli(), 10)
}

// FetchImage streams the stored profile image. The caller closes the returned body.
func (c *Client) FetchImage(ctx context.Context) (io.ReadCloser, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, getImagePath, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", c.errorFromResponse(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// UpdateProfile submits the name/email form.
func (c *Client) UpdateProfile(ctx context.Context, name, email string) error {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	req, err := c.newRequest(ctx, http.MethodPost, updatePath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ack, err := c.ack(req, "update profile")
	if err != nil {
		return err
	}
	if !ack.Success {
		return &RejectionError{Op: "update profile", Message: ack.Message}
	}
	return nil
}

func (c *Client) ack(req *http.Request, op string) (ackPayload, error) {
	resp, err := c.do(req)
	if err != nil {
		return ackPayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ackPayload{}, c.errorFromResponse(resp)
	}
	var payload ackPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ackPayload{}, fmt.Errorf("profile: decode %s: %w", op, err)
	}
	return payload, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile: request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("profile: build request: %w", err)
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("profile: encode payload: %w", err)
	}
	req, err := c.newRequest(ctx, method, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) resolve(endpoint string) string {
	return c.base.JoinPath(endpoint).String()
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Status: resp.StatusCode, Body: text}
}
