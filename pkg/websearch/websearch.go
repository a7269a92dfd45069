// Package websearch implements a client for the Brave Web Search API.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.search.brave.com"

const searchPath = "/res/v1/web/search"

// maxCount is the API's per-request result ceiling.
const maxCount = 20

// ErrSearch wraps every failure mode of a search call.
var ErrSearch = errors.New("websearch: search failed")

// Result is a single web search result.
type Result struct {
	Title       string
	URL         string
	Description string
}

// Options tune a search call.
type Options struct {
	// Count caps the number of results (1-20). Zero means the API default.
	Count int

	// Freshness optionally restricts result age (pd, pw, pm, py).
	Freshness string
}

// Client calls the Brave Web Search API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Intended for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client with the given subscription token.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type apiResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search executes a web search and returns parsed results. The query may
// include site: filters.
func (c *Client) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	if opts.Count > 0 {
		params.Set("count", strconv.Itoa(min(opts.Count, maxCount)))
	}
	if opts.Freshness != "" {
		params.Set("freshness", opts.Freshness)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("brave search request failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("brave search http error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", ErrSearch, resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrSearch, err)
	}

	results := make([]Result, 0, len(data.Web.Results))
	for _, r := range data.Web.Results {
		results = append(results, Result{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}

	c.log.Debug("brave search completed", "query", query, "results", len(results))
	return results, nil
}
