// Package remote is the favorites.Gateway backed by the recipesd HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/csheth/recipescout/internal/favorites"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls /api/favorites on a recipesd instance with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    doer
}

var _ favorites.Gateway = (*Client)(nil)

func NewClient(baseURL, token string, httpClient doer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) Fetch(ctx context.Context) ([]favorites.Entry, error) {
	var entries []favorites.Entry
	if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Add posts e. Business outcomes arrive in the result; only transport and
// unexpected statuses are errors.
func (c *Client) Add(ctx context.Context, e favorites.Entry) (favorites.AddResult, error) {
	var res favorites.AddResult
	if err := c.do(ctx, http.MethodPost, "/api/favorites", e, &res); err != nil {
		return favorites.AddResult{}, err
	}
	return res, nil
}

func (c *Client) Remove(ctx context.Context, link string) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites?link="+url.QueryEscape(link), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && method == http.MethodDelete:
		return favorites.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest && out != nil:
		// Validation failures carry an AddResult-shaped body.
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("favorites API error: %s (%s)", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode favorites response: %w", err)
	}
	return nil
}
