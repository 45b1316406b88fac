// Package apiclient is the HTTP client of the contacts API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/maruel/contactcrm/internal/schema"
	"github.com/maruel/contactcrm/internal/storage"
	"github.com/maruel/contactcrm/internal/storage/history"
)

// Error is a non-2xx API response. Its text is the server's error message so
// it can be shown to the user verbatim.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Client talks to one server.
type Client struct {
	base       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New returns a client for the server at base, e.g. http://localhost:3000.
func New(base string) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", base)
	}
	return &Client{
		base:       strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}, nil
}

// SetRateLimit caps outgoing requests per second; 0 removes the cap.
func (c *Client) SetRateLimit(perSecond float64) {
	if perSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Limit(perSecond))
}

// do performs a JSON request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &e); err != nil || e.Error == "" {
			return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))}
		}
		return &Error{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse %s %s response: %w", method, path, err)
	}
	return nil
}

func contactPath(id string) string {
	return "/api/contacts/" + url.PathEscape(id)
}

// List returns every record, newest first.
func (c *Client) List(ctx context.Context) ([]storage.Record, error) {
	var resp struct {
		Items []storage.Record `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/contacts", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []storage.Record{}
	}
	return resp.Items, nil
}

// Create adds a record.
func (c *Client) Create(ctx context.Context, fields map[string]any) (storage.Record, error) {
	var rec storage.Record
	if err := c.do(ctx, http.MethodPost, "/api/contacts", fields, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update shallow-merges fields into the record id.
func (c *Client) Update(ctx context.Context, id string, fields map[string]any) (storage.Record, error) {
	var rec storage.Record
	if err := c.do(ctx, http.MethodPut, contactPath(id), fields, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, contactPath(id), nil, nil)
}

// DeleteAll removes every record.
func (c *Client) DeleteAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/contacts/_all", nil, nil)
}

// Schema fetches the server's field descriptor.
func (c *Client) Schema(ctx context.Context) (*schema.Descriptor, error) {
	var resp struct {
		Descriptor json.RawMessage `json:"descriptor"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/schema", nil, &resp); err != nil {
		return nil, err
	}
	return schema.ParseJSON(resp.Descriptor)
}

// History lists up to limit recorded versions of the store, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]*history.Commit, error) {
	var resp struct {
		Items []*history.Commit `json:"items"`
	}
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
