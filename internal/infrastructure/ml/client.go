package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"DailyHoller/internal/ports"
)

// Options tunes requests sent to the inference service.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client talks to a self-hosted inference service exposing POST /generate.
type Client struct {
	endpoint string
	apiKey   string
	opts     Options
	http     *http.Client
}

var _ ports.Completer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		opts:     opts,
		http:     &http.Client{Timeout: timeout},
	}
}

// Complete sends the prompt pair and returns the generated text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	payload := map[string]any{
		"system":      system,
		"prompt":      prompt,
		"model":       c.opts.Model,
		"temperature": c.opts.Temperature,
		"max_tokens":  c.opts.MaxTokens,
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/generate", payload, &resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			return fmt.Errorf("unexpected status %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
