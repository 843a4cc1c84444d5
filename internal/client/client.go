// Package client calls a running postcraft worker server over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dbraendle/postcraft/internal/worker"
)

// Client talks to the worker server's trigger endpoint.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the worker server at baseURL.
// If baseURL is empty, uses POSTCRAFT_SERVER_URL env var or defaults to localhost:8686.
// Timeout can be configured via POSTCRAFT_CLIENT_TIMEOUT env var (default 5m, sweeps run LLM calls).
func New(baseURL, secret string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("POSTCRAFT_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8686"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := 5 * time.Minute
	if t := os.Getenv("POSTCRAFT_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		secret:  secret,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TriggerSweep runs one sweep on the server and returns its counts.
func (c *Client) TriggerSweep(ctx context.Context) (*worker.SweepResult, error) {
	body, status, err := c.post(ctx, "/worker")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("server error: %d - %s", status, strings.TrimSpace(string(body)))
	}

	var result worker.SweepResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &result, nil
}

// kickTimeout bounds the enqueue-side sweep nudge. The server only has to
// accept the kick, not run the sweep, so this stays short.
const kickTimeout = 3 * time.Second

// Kick asks the server for a background sweep and returns without waiting for
// it. Failures are logged and swallowed: a missed kick only delays jobs until
// the next interval sweep.
func (c *Client) Kick() {
	ctx, cancel := context.WithTimeout(context.Background(), kickTimeout)
	defer cancel()

	body, status, err := c.post(ctx, "/worker?wait=false")
	if err != nil {
		c.logger.Debug("sweep kick failed", "error", err)
		return
	}
	if status != http.StatusAccepted && status != http.StatusOK {
		c.logger.Debug("sweep kick rejected", "status", status, "body", strings.TrimSpace(string(body)))
	}
}

func (c *Client) post(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
