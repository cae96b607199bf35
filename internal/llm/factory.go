package llm

import (
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for the LLM matcher.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewClient creates a raw LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	case "gemini":
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

func (c Config) temperatureOrDefault() float64 {
	if c.Temperature == 0 {
		return 0.1
	}
	return c.Temperature
}

func (c Config) maxTokensOrDefault() int {
	if c.MaxTokens == 0 {
		return 4096
	}
	return c.MaxTokens
}

func (c Config) timeoutOrDefault() time.Duration {
	if c.Timeout == 0 {
		return 120 * time.Second
	}
	return c.Timeout
}
