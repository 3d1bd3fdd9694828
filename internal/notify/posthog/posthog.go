// Package posthog implements the analytics capture capability against the
// PostHog capture endpoint. No SDK; one small POST per event, the way the
// site always did it.
package posthog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unflakeops/leadrelay/internal/notify"
)

const (
	// DefaultHost is the EU cloud capture host.
	DefaultHost = "https://eu.posthog.com"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 2048
)

// Client records analytics events under one write key.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHost overrides the capture host.
func WithHost(host string) Option {
	return func(c *Client) {
		if strings.TrimSpace(host) != "" {
			c.host = strings.TrimRight(host, "/")
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a PostHog client with the given write key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		host:       DefaultHost,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type captureRequest struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties"`
}

// Capture records one event. Any 2xx response counts as success.
func (c *Client) Capture(ctx context.Context, event notify.Event) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return notify.ErrNotReady
	}

	body, err := json.Marshal(captureRequest{
		APIKey:     c.apiKey,
		Event:      event.Name,
		DistinctID: event.DistinctID,
		Properties: event.Properties,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", notify.ErrSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/capture/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", notify.ErrSend, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", notify.ErrSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: posthog %d: %s", notify.ErrNon2xx, resp.StatusCode, string(excerpt))
	}
	return nil
}
