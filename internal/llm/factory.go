package llm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider kinds understood by NewProvider.
const (
	KindOpenAI    = "openai"
	KindPawan     = "pawan"
	KindAnthropic = "anthropic"
	KindGemini    = "gemini"
	KindOllama    = "ollama"
)

// Config describes one configured provider.
type Config struct {
	Name    string
	Kind    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewProvider creates the Provider for cfg.Kind. Name defaults to the kind.
func NewProvider(cfg Config, logger *zap.Logger) (Provider, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if cfg.Name == "" {
		cfg.Name = kind
	}

	switch kind {
	case KindOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			Name: cfg.Name, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL,
			Model: cfg.Model, Timeout: cfg.Timeout, JSONMode: true,
		}, logger)
	case KindPawan:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultPawanBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = DefaultPawanModel
		}
		return NewOpenAIClient(OpenAIConfig{
			Name: cfg.Name, APIKey: cfg.APIKey, BaseURL: baseURL,
			Model: model, Timeout: cfg.Timeout, JSONMode: true,
		}, logger)
	case KindAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			Name: cfg.Name, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL,
			Model: cfg.Model, Timeout: cfg.Timeout,
		}, logger)
	case KindGemini:
		return NewGeminiClient(GeminiConfig{
			Name: cfg.Name, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL,
			Model: cfg.Model, Timeout: cfg.Timeout,
		}, logger)
	case KindOllama:
		return NewOllamaClient(OllamaConfig{
			Name: cfg.Name, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %q", cfg.Kind)
	}
}

// NewProviders builds providers in the given order, skipping (and logging)
// entries that cannot be constructed, e.g. for a missing API key.
func NewProviders(cfgs []Config, logger *zap.Logger) []Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := NewProvider(cfg, logger)
		if err != nil {
			logger.Warn("provider disabled", zap.String("provider", cfg.Name), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out
}
