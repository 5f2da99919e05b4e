// Package edamam talks to the Edamam recipe search API, either directly or
// through the recipesd proxy.
package edamam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/csheth/recipescout/internal/search"
)

const (
	DefaultSearchURL       = "https://api.edamam.com/api/recipes/v2"
	DefaultAutocompleteURL = "https://api.edamam.com/auto-complete"
	defaultSuggestLimit    = 10
	errorBodyLimit         = 512
	rawBodyLimit           = 8 << 20
)

// ErrBodyTooLarge is returned by Raw when a response exceeds rawBodyLimit.
var ErrBodyTooLarge = errors.New("edamam: response body too large")

// StatusError is an unexpected HTTP status from the API.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("edamam API error: %s (%s)", e.Status, e.Body)
}

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client. When CursorParam is set the client is talking
// to a proxy and sends continuation cursors as that query parameter instead
// of following them directly.
type Config struct {
	SearchURL       string
	AutocompleteURL string
	AppID           string
	AppKey          string
	CursorParam     string
	SuggestLimit    int
	Timeout         time.Duration
	HTTPClient      doer
}

// Client implements search.Backend and search.Suggester.
type Client struct {
	http            doer
	searchURL       string
	autocompleteURL string
	appID           string
	appKey          string
	cursorParam     string
	suggestLimit    int
}

var (
	_ search.Backend   = (*Client)(nil)
	_ search.Suggester = (*Client)(nil)
)

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		http:            httpClient,
		searchURL:       cfg.SearchURL,
		autocompleteURL: cfg.AutocompleteURL,
		appID:           cfg.AppID,
		appKey:          cfg.AppKey,
		cursorParam:     cfg.CursorParam,
		suggestLimit:    cfg.SuggestLimit,
	}
	if c.searchURL == "" {
		c.searchURL = DefaultSearchURL
	}
	if c.autocompleteURL == "" {
		c.autocompleteURL = DefaultAutocompleteURL
	}
	if c.suggestLimit <= 0 {
		c.suggestLimit = defaultSuggestLimit
	}
	return c
}

// SearchURL builds the first-page request URL for query.
func (c *Client) SearchURL(query string) (string, error) {
	u, err := url.Parse(c.searchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	params := u.Query()
	params.Set("type", "public")
	params.Set("q", query)
	c.setKeys(params)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// CursorURL returns the URL fetched for a continuation cursor.
func (c *Client) CursorURL(cursor string) (string, error) {
	if c.cursorParam == "" {
		return cursor, nil
	}
	u, err := url.Parse(c.searchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	params := u.Query()
	params.Set(c.cursorParam, cursor)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (c *Client) Search(ctx context.Context, query string) (search.Page, error) {
	target, err := c.SearchURL(query)
	if err != nil {
		return search.Page{}, err
	}
	return c.fetchPage(ctx, target)
}

func (c *Client) Next(ctx context.Context, cursor string) (search.Page, error) {
	if cursor == "" {
		return search.Page{}, errors.New("edamam: empty cursor")
	}
	target, err := c.CursorURL(cursor)
	if err != nil {
		return search.Page{}, err
	}
	return c.fetchPage(ctx, target)
}

// Raw performs a GET against target and returns the body of a successful
// response. It is what the proxy forwards to its clients.
func (c *Client) Raw(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, rawBodyLimit+1))
	if err != nil {
		return nil, err
	}
	if len(body) > rawBodyLimit {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// Autocomplete returns suggestions for partial. Both the upstream bare array
// and the proxy's {"data": [...]} envelope are accepted.
func (c *Client) Autocomplete(ctx context.Context, partial string) ([]string, error) {
	u, err := url.Parse(c.autocompleteURL)
	if err != nil {
		return nil, fmt.Errorf("parse autocomplete url: %w", err)
	}
	params := u.Query()
	params.Set("q", partial)
	params.Set("limit", strconv.Itoa(c.suggestLimit))
	c.setKeys(params)
	u.RawQuery = params.Encode()

	body, err := c.Raw(ctx, u.String())
	if err != nil {
		return nil, err
	}
	return decodeSuggestions(body)
}

func (c *Client) fetchPage(ctx context.Context, target string) (search.Page, error) {
	resp, err := c.get(ctx, target)
	if err != nil {
		return search.Page{}, err
	}
	defer resp.Body.Close()
	return decodePage(resp.Body)
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.appID != "" {
		req.Header.Set("Edamam-Account-User", c.appID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, search.ErrThrottled
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	return resp, nil
}

func (c *Client) setKeys(params url.Values) {
	if c.appID != "" {
		params.Set("app_id", c.appID)
	}
	if c.appKey != "" {
		params.Set("app_key", c.appKey)
	}
}

func decodeSuggestions(body []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	var envelope struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode autocomplete response: %w", err)
	}
	return envelope.Data, nil
}
