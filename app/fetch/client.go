package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	acceptJSON     = "application/json, application/activity+json"
	acceptActivity = "application/activity+json, application/ld+json; profile=\"https://www.w3.org/ns/activitystreams\""
	acceptHTML     = "text/html, application/xhtml+xml"

	maxResponseBytes = 4 << 20
)

// Client wraps the shared HTTP transport used by every fetch strategy: one
// identifying User-Agent, a bounded per-request timeout, and capped response
// bodies.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Get performs a GET with the given Accept header and returns the body and
// status code. A non-2xx status is not an error here; callers map it.
func (c *Client) Get(ctx context.Context, url, accept string) ([]byte, int, error) {
	return c.do(ctx, http.MethodGet, url, accept, nil)
}

// PostJSON performs a POST with a JSON-encoded payload.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, acceptJSON, body)
}

func (c *Client) do(ctx context.Context, method, url, accept string, body []byte) ([]byte, int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(timeoutCtx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.StatusCode, nil
}

// decodeJSON unmarshals data into out, surfacing failures as PARSE_ERROR.
func decodeJSON(data []byte, out any) *Error {
	if err := json.Unmarshal(data, out); err != nil {
		return newError(CodeParseError, "Failed to parse the instance response: "+err.Error(), "The instance may be returning an unexpected format")
	}
	return nil
}

// networkError wraps a transport-level failure.
func networkError(err error) *Error {
	return newError(CodeNetworkError, "Could not reach the instance: "+err.Error(), "Check that the instance is online and the domain is correct")
}

// baseURL rebuilds scheme://domain from the original input URL so plain-http
// instances keep working.
func baseURL(rawURL, domain string) string {
	if strings.HasPrefix(rawURL, "http://") {
		return "http://" + domain
	}
	return "https://" + domain
}
