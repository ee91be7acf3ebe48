// Package commerce talks to the downstream commerce backend: CRUD plus
// media upload, and the duplicate-key recovery state machine that stages
// product records into it.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Product is the commerce backend's product representation.
type Product struct {
	ID           int64    `json:"id,omitempty"`
	SKU          string   `json:"sku"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency,omitempty"`
	Description  string   `json:"description,omitempty"`
	Images       []string `json:"images,omitempty"`
	Category     string   `json:"category,omitempty"`
	Availability string   `json:"availability,omitempty"`
	Barcode      string   `json:"barcode,omitempty"`
}

// APIError is a non-success response from the commerce backend.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce api: status %d: %s", e.Status, truncate(e.Body, 200))
}

func truncate(body []byte, n int) string {
	if len(body) > n {
		return string(body[:n]) + "..."
	}
	return string(body)
}

// Client is a thin JSON client for the commerce API. Writes are never
// retried here; the sync engine owns that state machine.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a commerce client. token authenticates every call.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetTransport swaps the underlying transport. Used by tests.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// GetProduct reads one product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// maxLookupPages bounds the SKU scan so a backend that ignores the page
// parameter cannot loop the lookup forever.
const maxLookupPages = 50

// FindBySKU scans the paged product list for an exact SKU match.
func (c *Client) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	for page := 1; page <= maxLookupPages; page++ {
		var products []Product
		path := fmt.Sprintf("/products?sku=%s&page=%d", url.QueryEscape(sku), page)
		if err := c.do(ctx, http.MethodGet, path, nil, &products); err != nil {
			return nil, err
		}
		if len(products) == 0 {
			return nil, nil
		}
		for i := range products {
			if products[i].SKU == sku {
				return &products[i], nil
			}
		}
	}
	return nil, fmt.Errorf("find sku %s: no terminal page after %d pages", sku, maxLookupPages)
}

// CreateProduct creates a product and returns its assigned id.
func (c *Client) CreateProduct(ctx context.Context, product *Product) (int64, error) {
	var created Product
	if err := c.do(ctx, http.MethodPost, "/products", product, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// UpdateProduct overwrites a product by id.
func (c *Client) UpdateProduct(ctx context.Context, id int64, product *Product) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), product, nil)
}

// DeleteProduct removes a product by id.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil)
}

// UploadImage pushes one optimized image to the media endpoint and returns
// the remote URL. Implements media.Uploader.
func (c *Client) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &APIError{Status: resp.StatusCode, Body: payload}
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(payload, &result); err != nil || result.URL == "" {
		return "", fmt.Errorf("media response carries no url")
	}
	return result.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		if out != nil && len(payload) > 0 {
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	default:
		return &APIError{Status: resp.StatusCode, Body: payload}
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// ProductID parses an id string from the API (some payloads quote ids).
func ProductID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
