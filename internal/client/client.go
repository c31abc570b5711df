// Package client talks to a running stockroom HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockRoom/internal/inventory"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrBadStatus   = errors.New("unexpected status")
	ErrUnavailable = errors.New("server unavailable")
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) InventoryReport(ctx context.Context) (inventory.InventoryReport, error) {
	var rep inventory.InventoryReport
	err := c.get(ctx, "/products/metrics", &rep)
	return rep, err
}

func (c *Client) Product(ctx context.Context, id string) (inventory.Product, error) {
	var p inventory.Product
	err := c.get(ctx, "/products/"+url.PathEscape(id), &p)
	return p, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
