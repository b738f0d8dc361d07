// internal/notion/client.go
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appErrors "github.com/dealscale/redirect-engine/internal/errors"
)

const (
	apiBase    = "https://api.notion.com/v1"
	apiVersion = "2022-06-28"
)

// Page is the subset of a Notion page this service reads.
type Page struct {
	ID     string `json:"id"`
	Parent struct {
		DatabaseID string `json:"database_id"`
	} `json:"parent"`
	Icon *struct {
		Emoji string `json:"emoji"`
	} `json:"icon"`
	Cover *struct {
		External *ExternalFile `json:"external"`
	} `json:"cover"`
	Properties map[string]Property `json:"properties"`
}

type QueryRequest struct {
	PageSize int            `json:"page_size,omitempty"`
	Filter   map[string]any `json:"filter,omitempty"`
}

type QueryResponse struct {
	Results []Page `json:"results"`
}

type Client struct {
	key  string
	base string
	http *http.Client
}

// NewClient returns a Notion API client. A short client timeout bounds
// resolver tail latency on cache miss; a slow CMS read otherwise delays
// the end-user redirect.
func NewClient(key string) *Client {
	return &Client{
		key:  key,
		base: apiBase,
		http: &http.Client{Timeout: 3 * time.Second},
	}
}

// NewClientWithBase is used by tests to point the client at a stub server.
func NewClientWithBase(key, base string) *Client {
	c := NewClient(key)
	c.base = base
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.key != ""
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return appErrors.NewUpstream(resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetPage retrieves a single page by ID.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// QueryDatabase runs a filtered query against a database.
func (c *Client) QueryDatabase(ctx context.Context, dbID string, q QueryRequest) (*QueryResponse, error) {
	var out QueryResponse
	path := fmt.Sprintf("/databases/%s/query", dbID)
	if err := c.do(ctx, http.MethodPost, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateNumberProperty writes a number property value back to a page.
func (c *Client) UpdateNumberProperty(ctx context.Context, pageID, property string, value float64) error {
	body := map[string]any{
		"properties": map[string]any{
			property: map[string]any{"number": value},
		},
	}
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, nil)
}
