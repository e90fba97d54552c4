package yadisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public Yandex Disk API root. Public-link resolution
// requires no authentication.
const DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk/public"

// Config holds Yandex Disk API configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client resolves Yandex Disk public links to direct download URLs.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type downloadResponse struct {
	Href    string `json:"href"`
	Message string `json:"message"`
}

// NewClient creates a new Yandex Disk API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// ResolveDownloadURL resolves a public link (disk.yandex.* / yadi.sk) to the
// direct href the file can be fetched from. The href points at the Yandex
// downloader CDN and is short-lived.
func (c *Client) ResolveDownloadURL(ctx context.Context, publicLink string) (string, error) {
	if publicLink == "" {
		return "", fmt.Errorf("validation error: public link must be non-empty")
	}

	endpoint := c.baseURL + "/resources/download?public_key=" + url.QueryEscape(publicLink)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create yadisk request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("yadisk request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("failed to read yadisk response: %w", err)
	}

	var out downloadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode yadisk response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || out.Href == "" {
		msg := out.Message
		if msg == "" {
			msg = "cannot resolve public link"
		}
		return "", fmt.Errorf("yadisk resolve failed (status %d): %s", resp.StatusCode, msg)
	}

	return out.Href, nil
}
