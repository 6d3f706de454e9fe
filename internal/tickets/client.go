// Package tickets fetches per-ticket detail from the helpdesk API. The grid
// itself is fed from the database; this client only fills the detail pane.
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Message is one entry in a ticket's conversation thread.
type Message struct {
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
	Internal  bool   `json:"internal"`
}

// Detail is the remote view of one ticket.
type Detail struct {
	TicketNo  string    `json:"ticketNo"`
	Requester string    `json:"requester"`
	Channel   string    `json:"channel"`
	Messages  []Message `json:"messages"`
}

// Client talks to the helpdesk HTTP API.
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

// FetchDetail retrieves one ticket's conversation thread.
func (c *Client) FetchDetail(ctx context.Context, ticketNo string) (Detail, error) {
	if c == nil {
		return Detail{}, fmt.Errorf("client is nil")
	}
	ticketNo = strings.TrimSpace(ticketNo)
	if ticketNo == "" {
		return Detail{}, fmt.Errorf("ticket number required")
	}

	rel := &url.URL{Path: "/v2/tickets/" + url.PathEscape(ticketNo)}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Detail{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Detail{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Detail{}, fmt.Errorf("ticket %s not found upstream", ticketNo)
	}
	if resp.StatusCode >= 400 {
		return Detail{}, fmt.Errorf("helpdesk api returned status %d", resp.StatusCode)
	}

	var detail Detail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return Detail{}, fmt.Errorf("decode response: %w", err)
	}
	return detail, nil
}

func parseBaseURL(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("helpdesk endpoint is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse helpdesk endpoint %q: %w", endpoint, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
