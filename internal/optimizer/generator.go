package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"seopilot/internal/config"
)

// Supported providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ErrGeneratorUnavailable is returned when no AI provider is configured
var ErrGeneratorUnavailable = errors.New("AI provider is not configured")

// Generator turns a prompt into text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator calls a langchaingo model
type LLMGenerator struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewLLMGenerator builds a generator for the configured provider
func NewLLMGenerator(cfg config.AIConfig) (*LLMGenerator, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, ErrGeneratorUnavailable
		}
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model, err = ollama.New(
			ollama.WithServerURL(baseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", cfg.Provider, err)
	}

	return NewLLMGeneratorFromModel(model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
}

// NewLLMGeneratorFromModel wraps an existing model
func NewLLMGeneratorFromModel(model llms.Model, temperature float64, maxTokens int, timeout time.Duration) *LLMGenerator {
	return &LLMGenerator{
		llm:         model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

// Generate sends prompt as a single user message
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	callOptions := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if g.maxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(g.maxTokens))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, callOptions...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

// unavailableGenerator fails every call. It stands in when no provider is configured.
type unavailableGenerator struct{}

// Unavailable returns a Generator that always fails with ErrGeneratorUnavailable
func Unavailable() Generator { return unavailableGenerator{} }

func (unavailableGenerator) Generate(context.Context, string) (string, error) {
	return "", ErrGeneratorUnavailable
}
