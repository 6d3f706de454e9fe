// Package shipping talks to the carrier's label-issuance API.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LabelRequest describes one parcel to label.
type LabelRequest struct {
	OrderNo      string  `json:"orderNo"`
	Name         string  `json:"name"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 string  `json:"addressLine2"`
	City         string  `json:"city"`
	Postcode     string  `json:"postcode"`
	Country      string  `json:"country"`
	WeightKG     float64 `json:"weightKg"`
}

// Label is the issued shipping label.
type Label struct {
	TrackingNumber string `json:"trackingNumber"`
	LabelURL       string `json:"labelUrl"`
	Carrier        string `json:"carrier"`
}

// Client issues shipping labels over the carrier HTTP API.
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

// CreateLabel issues a label for one parcel.
func (c *Client) CreateLabel(ctx context.Context, req LabelRequest) (Label, error) {
	if c == nil {
		return Label{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.AddressLine1) == "" {
		return Label{}, fmt.Errorf("name and address are required")
	}
	if req.WeightKG <= 0 {
		return Label{}, fmt.Errorf("weight must be positive")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Label{}, fmt.Errorf("encode label request: %w", err)
	}

	var label Label
	if err := c.do(ctx, http.MethodPost, "/v1/labels", body, &label); err != nil {
		return Label{}, err
	}
	return label, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, dest any) error {
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("carrier api %s returned status %d", path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("shipping endpoint is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse shipping endpoint %q: %w", endpoint, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
