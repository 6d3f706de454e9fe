// Package orders looks up order summaries from the commerce API.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Item is one line of an order.
type Item struct {
	SKU      string `json:"sku"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// Summary is the subset of an order this tool cares about.
type Summary struct {
	OrderNo      string `json:"orderNo"`
	CustomerName string `json:"customerName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
	Status       string `json:"status"`
	Items        []Item `json:"items"`
}

// Client talks to the commerce HTTP API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	apiKey  string
}

const requestTimeout = 10 * time.Second

// NewClient builds a Client for the given endpoint.
func NewClient(endpoint, apiKey string) (*Client, error) {
	base, err := parseBaseURL(endpoint)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: requestTimeout},
		apiKey:  apiKey,
	}, nil
}

// FetchSummary retrieves one order by number.
func (c *Client) FetchSummary(ctx context.Context, orderNo string) (Summary, error) {
	if c == nil {
		return Summary{}, fmt.Errorf("client is nil")
	}
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return Summary{}, fmt.Errorf("order number required")
	}

	rel := &url.URL{Path: "/v1/orders/" + url.PathEscape(orderNo)}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Summary{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Summary{}, fmt.Errorf("order %s not found", orderNo)
	}
	if resp.StatusCode >= 400 {
		return Summary{}, fmt.Errorf("commerce api returned status %d", resp.StatusCode)
	}

	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return Summary{}, fmt.Errorf("decode response: %w", err)
	}
	return summary, nil
}

func parseBaseURL(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("commerce endpoint is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse commerce endpoint %q: %w", endpoint, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
