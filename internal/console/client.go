// Package console provides a read-only client for the Dify console API.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
)

const defaultUserAgent = "dify-backup-tui"

// ClientConfig holds the resolved connection settings for one run.
type ClientConfig struct {
	BaseURL   string
	AuthToken string
	CSRFToken string
	// Cookies are replayed verbatim; the console authenticates most calls by session cookie.
	Cookies    map[string]string
	HTTPClient *http.Client
	UserAgent  string
}

// Client issues authenticated GET requests against the console API.
type Client struct {
	config     ClientConfig
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient validates cfg and returns a client. cfg is copied; later changes to the
// caller's value do not affect the client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	cookies := make(map[string]string, len(cfg.Cookies))
	for k, v := range cfg.Cookies {
		cookies[k] = v
	}
	cfg.Cookies = cookies

	return &Client{
		config:     cfg,
		baseURL:    base,
		httpClient: httpClient,
	}, nil
}

// HasCSRFToken reports whether an anti-forgery token is configured.
func (c *Client) HasCSRFToken() bool {
	return c.config.CSRFToken != ""
}

// BaseURL returns the normalized console origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetJSON performs a GET on endpoint with the given query and decodes the JSON body into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	target := c.baseURL.String() + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Body:       string(body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", endpoint, err)
	}
	return nil
}

// decorate attaches authentication headers the way the console's own frontend does.
func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	if token := c.config.CSRFToken; token != "" {
		req.Header.Set("X-CSRF-Token", token)
		req.Header.Set("X-CSRFToken", token)
		req.Header.Set("CSRF-Token", token)
	}

	if len(c.config.Cookies) > 0 {
		names := make([]string, 0, len(c.config.Cookies))
		for name := range c.config.Cookies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			req.AddCookie(&http.Cookie{Name: name, Value: c.config.Cookies[name]})
		}
	}
}
