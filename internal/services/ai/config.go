// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider string
	APIKey   string
	BaseURL  string

	ChatModel  string
	TitleModel string

	// Retries cover transient provider failures only; rate limits are
	// returned immediately.
	MaxRetries int
	RetryDelay time.Duration

	// Model Parameters
	Temperature      float32
	MaxTokens        int
	TitleTemperature float32
	TitleMaxTokens   int
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported AI provider %q", c.Provider)
	}
	if c.ChatModel == "" {
		return fmt.Errorf("chat model is required")
	}
	if c.TitleModel == "" {
		return fmt.Errorf("title model is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.MaxTokens <= 0 || c.TitleMaxTokens <= 0 {
		return fmt.Errorf("token limits must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Provider:         ProviderOpenAI,
		ChatModel:        "gpt-4o-mini",
		TitleModel:       "gpt-4o-mini",
		MaxRetries:       2,
		RetryDelay:       500 * time.Millisecond,
		Temperature:      0.7,
		MaxTokens:        2048,
		TitleTemperature: 0.7,
		TitleMaxTokens:   20,
	}
}
