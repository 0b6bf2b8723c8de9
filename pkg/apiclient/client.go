// Package apiclient is a client for the DittoWatch status API.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// Client is the DittoWatch API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithTimeout returns a copy of the client with a different request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: &http.Client{Timeout: d, Transport: c.httpClient.Transport},
	}
}

// BaseURL returns the API address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the response wrapper written by every handler.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// get performs a GET request and decodes the envelope's data into result.
// Statuses in okStatus are decoded even when they are not 2xx, so that
// readiness can report its summary with a 503.
func (c *Client) get(ctx context.Context, path string, result any, okStatus ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 && !accepted(resp.StatusCode, okStatus) {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Error}
		if decodeErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	return nil
}

func accepted(code int, codes []int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
