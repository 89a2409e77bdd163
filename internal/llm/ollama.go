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

// OllamaClient handles communication with a local Ollama server.
// All HTTP calls go through the circuit breaker.
type OllamaClient struct {
	name           string
	baseURL        string
	client         *http.Client
	circuitBreaker *CircuitBreaker
	model          modelName
}

// OllamaConfig holds Ollama client configuration.
type OllamaConfig struct {
	Name string

	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434)
	BaseURL string

	// Model is the model name to use for completions (default: qwen2.5:7b)
	Model string

	// Timeout is the request timeout duration (default: 15s)
	Timeout time.Duration

	Breaker CircuitBreakerConfig
}

// generateRequest represents the request body for the /api/generate endpoint
type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateResponse represents the response from the /api/generate endpoint
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaClient creates a new Ollama client. Missing values default to
// http://localhost:11434, qwen2.5:7b and a 15 second timeout.
func NewOllamaClient(config OllamaConfig, logger *zap.Logger) *OllamaClient {
	if config.Name == "" {
		config.Name = "ollama"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "qwen2.5:7b"
	}
	if config.Timeout == 0 {
		config.Timeout = defaultClientTimeout
	}

	c := &OllamaClient{
		name:    config.Name,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client: &http.Client{
			Timeout: config.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(config.Name, config.Breaker, logger),
	}
	c.model.set(config.Model)
	return c
}

// Complete sends a completion request to Ollama and returns the response text.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := c.circuitBreaker.Execute(ctx, func() (string, error) {
		return c.complete(ctx, req)
	})
	return out, classifyError(c.name, err)
}

// complete is Complete without the circuit breaker.
func (c *OllamaClient) complete(ctx context.Context, r Request) (string, error) {
	reqBody := generateRequest{
		Model:  c.model.get(),
		System: r.System,
		Prompt: r.Prompt,
		Stream: false,
		Format: "json",
		Options: generateOptions{
			Temperature: r.Temperature,
			NumPredict:  r.MaxTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: ollama returned status %d: %s", ErrTransport, resp.StatusCode, string(body))
	}

	var respData generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrMalformedResponse, err)
	}
	return respData.Response, nil
}

// Name returns the provider identifier.
func (c *OllamaClient) Name() string { return c.name }

// Model returns the current model name.
func (c *OllamaClient) Model() string { return c.model.get() }

// SetModel changes the model for subsequent requests.
func (c *OllamaClient) SetModel(model string) { c.model.set(model) }

// BreakerState reports the circuit breaker state.
func (c *OllamaClient) BreakerState() string { return c.circuitBreaker.State() }

var _ Provider = (*OllamaClient)(nil)
