// Package shorten talks to a TinyURL-compatible link shortener: one GET
// with the long link as the url query parameter, plain-text short link in
// the response body.
package shorten

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the public TinyURL creation API.
const DefaultEndpoint = "https://tinyurl.com/api-create.php"

// ErrEmptyResponse is returned when the service answers 200 with no body.
var ErrEmptyResponse = errors.New("shortener returned an empty body")

// Client is safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
}

// New returns a Client for endpoint (DefaultEndpoint when empty).  timeout
// bounds each call; zero means no client-side limit beyond the context.
func New(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// Shorten returns the short form of longURL.  Any non-200 status, transport
// failure, or empty body is an error.
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	u := c.endpoint + "?url=" + url.QueryEscape(longURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("shorten request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("shorten call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("shorten read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shorten: status %d", resp.StatusCode)
	}

	short := strings.TrimSpace(string(body))
	if short == "" {
		return "", ErrEmptyResponse
	}
	return short, nil
}
