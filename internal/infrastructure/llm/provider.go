// Package llm adapts text generation providers to ports.Completer.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DailyHoller/internal/config"
	"DailyHoller/internal/infrastructure/ml"
	"DailyHoller/internal/ports"
)

const defaultTimeout = 60 * time.Second

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderInference = "inference"
)

// NewCompleter resolves the configured provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (ports.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI, "chatgpt":
		return NewChatGPTClient(cfg)
	case ProviderAnthropic, "claude":
		return NewAnthropicClient(cfg)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderInference:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("inference provider requires baseUrl")
		}
		return ml.NewClient(cfg.BaseURL, cfg.APIKey, ml.Options{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeoutOrDefault(cfg.Timeout),
		}), nil
	default:
		return nil, fmt.Errorf("llm provider %s is not supported", cfg.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}
