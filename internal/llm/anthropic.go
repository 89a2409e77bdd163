package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	Name    string
	APIKey  string
	BaseURL string        // default: https://api.anthropic.com
	Model   string        // default: claude-haiku-4-5-20251001
	Timeout time.Duration // default: 15s
	Breaker CircuitBreakerConfig
}

// AnthropicClient implements Provider using the Anthropic Messages API.
type AnthropicClient struct {
	name           string
	baseURL        string
	apiKey         string
	model          modelName
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewAnthropicClient creates a new Anthropic client with the given configuration.
func NewAnthropicClient(cfg AnthropicConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Name)
	}
	if cfg.Name == "" {
		cfg.Name = "anthropic"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultClientTimeout
	}
	c := &AnthropicClient{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(cfg.Name, cfg.Breaker, logger),
	}
	c.model.set(cfg.Model)
	return c, nil
}

// anthropicMessagesRequest is the request body for POST /v1/messages.
type anthropicMessagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicMessagesResponse is the response body from POST /v1/messages.
type anthropicMessagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends a single-turn message to Anthropic and returns the response text.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := c.circuitBreaker.Execute(ctx, func() (string, error) {
		return c.complete(ctx, req)
	})
	return out, classifyError(c.name, err)
}

func (c *AnthropicClient) complete(ctx context.Context, r Request) (string, error) {
	maxTokens := r.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	reqBody := anthropicMessagesRequest{
		Model:       c.model.get(),
		MaxTokens:   maxTokens,
		System:      r.System,
		Temperature: r.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: r.Prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: anthropic returned status %d: %s", ErrTransport, resp.StatusCode, string(body))
	}

	var respData anthropicMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrMalformedResponse, err)
	}

	for _, block := range respData.Content {
		if block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: anthropic returned empty content", ErrMalformedResponse)
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string { return c.name }

// Model returns the current model name.
func (c *AnthropicClient) Model() string { return c.model.get() }

// SetModel changes the model for subsequent requests.
func (c *AnthropicClient) SetModel(model string) { c.model.set(model) }

// BreakerState reports the circuit breaker state.
func (c *AnthropicClient) BreakerState() string { return c.circuitBreaker.State() }

// Compile-time assertion.
var _ Provider = (*AnthropicClient)(nil)
