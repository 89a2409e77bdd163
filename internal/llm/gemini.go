package llm

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

	"go.uber.org/zap"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiConfig holds configuration for the Google Gemini client.
type GeminiConfig struct {
	Name    string
	APIKey  string
	BaseURL string        // default: https://generativelanguage.googleapis.com
	Model   string        // default: gemini-1.5-flash
	Timeout time.Duration // default: 15s
	Breaker CircuitBreakerConfig
}

// GeminiClient implements Provider using the generateContent REST endpoint.
// Gemini tends to wrap JSON in markdown, so prompts get an extra strict
// instruction block appended.
type GeminiClient struct {
	name           string
	baseURL        string
	apiKey         string
	model          modelName
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Name)
	}
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultClientTimeout
	}
	c := &GeminiClient{
		name:           cfg.Name,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker(cfg.Name, cfg.Breaker, logger),
	}
	c.model.set(cfg.Model)
	return c, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// geminiRequest is the request body for POST .../models/{model}:generateContent.
type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete sends a generateContent request and returns the first candidate's text.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := c.circuitBreaker.Execute(ctx, func() (string, error) {
		return c.complete(ctx, req)
	})
	return out, classifyError(c.name, err)
}

func (c *GeminiClient) complete(ctx context.Context, r Request) (string, error) {
	maxTokens := r.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: r.Prompt + StrictJSONInstructions}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     r.Temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if r.System != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: r.System}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model.get()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: gemini returned status %d: %s", ErrTransport, resp.StatusCode, string(body))
	}

	var respData geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrMalformedResponse, err)
	}
	if len(respData.Candidates) == 0 || len(respData.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, p := range respData.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string { return c.name }

// Model returns the current model name.
func (c *GeminiClient) Model() string { return c.model.get() }

// SetModel changes the model for subsequent requests.
func (c *GeminiClient) SetModel(model string) { c.model.set(model) }

// BreakerState reports the circuit breaker state.
func (c *GeminiClient) BreakerState() string { return c.circuitBreaker.State() }

var _ Provider = (*GeminiClient)(nil)
