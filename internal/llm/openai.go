package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// Defaults for the OpenAI-compatible provider kinds.
const (
	DefaultOpenAIModel   = "gpt-4o"
	DefaultPawanBaseURL  = "https://api.pawan.krd/v1"
	DefaultPawanModel    = "gpt-3.5-turbo"
	defaultMaxTokens     = 1500
	defaultClientTimeout = 15 * time.Second
)

// OpenAIConfig holds configuration for any OpenAI-compatible chat API.
type OpenAIConfig struct {
	Name    string
	APIKey  string
	BaseURL string // empty means api.openai.com
	Model   string // default: gpt-4o
	Timeout time.Duration

	// JSONMode asks the server for a json_object response format. Some
	// compatible proxies reject it.
	JSONMode bool

	Breaker    CircuitBreakerConfig
	HTTPClient *http.Client
}

// OpenAIClient implements Provider on top of the official openai-go SDK.
// It serves both OpenAI itself and compatible proxies such as Pawan.
type OpenAIClient struct {
	name           string
	client         openai.Client
	model          modelName
	timeout        time.Duration
	jsonMode       bool
	circuitBreaker *CircuitBreaker
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Name)
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultClientTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	c := &OpenAIClient{
		name:           cfg.Name,
		client:         openai.NewClient(opts...),
		timeout:        cfg.Timeout,
		jsonMode:       cfg.JSONMode,
		circuitBreaker: NewCircuitBreaker(cfg.Name, cfg.Breaker, logger),
	}
	c.model.set(cfg.Model)
	return c, nil
}

// Complete sends a system+user chat completion and returns the message text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := c.circuitBreaker.Execute(ctx, func() (string, error) {
		return c.complete(ctx, req)
	})
	return out, classifyError(c.name, err)
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model.get(),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(req.Temperature),
	}
	if c.jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: status %d", ErrTransport, apiErr.StatusCode)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return c.name }

// Model returns the current model name.
func (c *OpenAIClient) Model() string { return c.model.get() }

// SetModel changes the model for subsequent requests.
func (c *OpenAIClient) SetModel(model string) { c.model.set(model) }

// BreakerState reports the circuit breaker state.
func (c *OpenAIClient) BreakerState() string { return c.circuitBreaker.State() }

// Compile-time assertion.
var _ Provider = (*OpenAIClient)(nil)
