package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	DefaultModel    = "gemini-3-flash-preview"
	DefaultTimeout  = 60 * time.Second
)

// Request is one text-generation call.
type Request struct {
	RunID  string
	Prompt string
}

// Generator produces text for a prompt. GeminiClient is the production
// implementation; tests substitute their own.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiConfig configures GeminiClient.
type GeminiConfig struct {
	Endpoint       string
	Model          string
	APIKey         string
	ThinkingBudget int
	Timeout        time.Duration
}

// GeminiClient is a thin HTTP client for the generateContent endpoint.
type GeminiClient struct {
	endpoint       string
	model          string
	apiKey         string
	thinkingBudget int
	http           *http.Client
}

// NewGeminiClient creates a client; empty fields fall back to the defaults.
// An empty API key is passed through and rejected by the remote side.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GeminiClient{
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		model:          cfg.Model,
		apiKey:         cfg.APIKey,
		thinkingBudget: cfg.ThinkingBudget,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

// Generate sends the prompt as a single user turn and returns the
// concatenated text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			ThinkingConfig: thinkingConfig{ThinkingBudget: c.thinkingBudget},
		},
	}
	var resp generateResponse
	path := "/v1beta/models/" + url.PathEscape(c.model) + ":generateContent"
	if err := c.postJSON(ctx, path, body, &resp); err != nil {
		return "", err
	}
	return resp.text(), nil
}

func (c *GeminiClient) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
