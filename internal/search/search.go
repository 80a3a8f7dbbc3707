// Package search is a thin client for the web search API that feeds the
// research command. Only the query/results contract is modelled; the
// provider behind the endpoint is interchangeable.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client queries the search endpoint.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

// DefaultTimeout bounds one search request.
const DefaultTimeout = 10 * time.Second

// New returns a Client for the endpoint at base. An empty base yields a
// disabled client whose Search returns no results.
func New(base, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{base: strings.TrimRight(base, "/"), apiKey: apiKey, http: httpClient}
}

// Search runs query and returns up to limit results. A disabled client
// returns nil, nil so the research command degrades to model-only answers.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if c.base == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	u := fmt.Sprintf("%s/search?q=%s&count=%d", c.base, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}
	if len(payload.Results) > limit {
		payload.Results = payload.Results[:limit]
	}
	return payload.Results, nil
}

// FormatForPrompt renders results as a numbered block for inclusion in a
// prompt. Empty input renders a placeholder line rather than "".
func FormatForPrompt(results []Result) string {
	if len(results) == 0 {
		return "(no search results available)"
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return sb.String()
}
