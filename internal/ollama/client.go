// Package ollama provides HTTP clients for the Ollama model server.
//
// Two operations are used: /api/embeddings for vector embeddings and
// /api/generate for text generation. The client performs exactly one HTTP
// call per invocation and never retries; retry policy, if any, belongs to
// the caller. Both methods are safe for concurrent use.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultGenerateTimeout = 2 * time.Minute
	maxErrorBodyBytes      = 4 << 10 // keep error messages bounded
	maxResponseBodyBytes   = 8 << 20
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// EmbeddingModel is the model used for /api/embeddings.
	EmbeddingModel string

	// GenerationModel is the model used for /api/generate.
	GenerationModel string

	// EmbedTimeout bounds a single embedding call (default: 30s).
	EmbedTimeout time.Duration

	// GenerateTimeout bounds a single generation call (default: 2m).
	GenerateTimeout time.Duration
}

// Client talks to a single Ollama server. The zero value is not usable;
// construct with NewClient.
type Client struct {
	embedClient    *http.Client
	generateClient *http.Client
	baseURL        string
	embedModel     string
	generateModel  string
}

// NewClient creates a new Ollama client, applying defaults for unset fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbedTimeout == 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	if cfg.GenerateTimeout == 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}

	return &Client{
		embedClient:    &http.Client{Timeout: cfg.EmbedTimeout},
		generateClient: &http.Client{Timeout: cfg.GenerateTimeout},
		baseURL:        cfg.BaseURL,
		embedModel:     cfg.EmbeddingModel,
		generateModel:  cfg.GenerationModel,
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// embedRequest is the /api/embeddings request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the /api/embeddings response format.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates a vector embedding for the given text.
// A non-success status yields a *StatusError; a body that cannot be parsed
// into a numeric vector yields an error wrapping ErrMalformedResponse.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := c.post(ctx, c.embedClient, "/api/embeddings", "embeddings", embedRequest{
		Model:  c.embedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding embeddings body: %v", ErrMalformedResponse, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: embeddings body has no embedding field", ErrMalformedResponse)
	}

	return resp.Embedding, nil
}

// GenerateOptions holds the generation parameters forwarded to the model.
type GenerateOptions struct {
	Temperature   float64
	ContextWindow int
}

// generateRequest is the /api/generate request format.
type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

// generateResponse is the /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces a completion for prompt with stream disabled.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req := generateRequest{
		Model:  c.generateModel,
		Prompt: prompt,
		Stream: false,
		Options: &generateOptions{
			Temperature: opts.Temperature,
			NumCtx:      opts.ContextWindow,
		},
	}

	body, err := c.post(ctx, c.generateClient, "/api/generate", "generate", req)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding generate body: %v", ErrMalformedResponse, err)
	}

	return resp.Response, nil
}

// post sends a JSON request and returns the raw success body.
func (c *Client) post(ctx context.Context, client *http.Client, path, op string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if readErr != nil {
			errBody = []byte("(unreadable body)")
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	return body, nil
}

// Ping checks connectivity via /api/tags without running inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := c.embedClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "tags", StatusCode: resp.StatusCode}
	}
	return nil
}
