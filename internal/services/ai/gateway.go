// File: internal/services/ai/gateway.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iyunix/go-converse/internal/logging"
)

const maxTitleSeedRunes = 200

type gateway struct {
	provider CompletionProvider
	config   *Config
	logger   logging.Logger
}

// NewGateway builds the provider selected by config.Provider.
func NewGateway(ctx context.Context, config *Config, logger logging.Logger) (Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}
	var provider CompletionProvider
	switch config.Provider {
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, config.APIKey)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		provider = NewOpenAIProvider(config.APIKey, config.BaseURL)
	}
	return NewGatewayWithProvider(provider, config, logger), nil
}

func NewGatewayWithProvider(provider CompletionProvider, config *Config, logger logging.Logger) Gateway {
	return &gateway{provider: provider, config: config, logger: logger}
}

func (g *gateway) GenerateReply(ctx context.Context, turns []Turn) (string, error) {
	valid := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return "", &AIError{Type: ErrTypeValidation, Operation: "reply", Message: "all messages are empty"}
	}

	reply, err := g.completeWithRetry(ctx, "reply", CompletionRequest{
		Model:       g.config.ChatModel,
		Turns:       valid,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (g *gateway) GenerateTitle(ctx context.Context, seed string) (string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return "", &AIError{Type: ErrTypeValidation, Operation: "title", Message: "message is required for title generation"}
	}
	prompt := fmt.Sprintf("Generate a short, concise title (3-4 words maximum) for this conversation starter: %q\n"+
		"Return only the title, nothing else. Make it descriptive and relevant.", truncateRunes(seed, maxTitleSeedRunes))

	return g.completeWithRetry(ctx, "title", CompletionRequest{
		Model:       g.config.TitleModel,
		Turns:       []Turn{{Role: "user", Content: prompt}},
		Temperature: g.config.TitleTemperature,
		MaxTokens:   g.config.TitleMaxTokens,
	})
}

// completeWithRetry retries transient failures within ctx's deadline.
func (g *gateway) completeWithRetry(ctx context.Context, operation string, req CompletionRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.config.MaxRetries; attempt++ {
		start := time.Now()
		text, err := g.provider.Complete(ctx, req)
		if err == nil {
			g.logger.Debug("completion succeeded", "operation", operation, "provider", g.provider.Name(),
				"model", req.Model, "attempt", attempt, "duration", time.Since(start))
			return text, nil
		}
		var aiErr *AIError
		if !errors.As(err, &aiErr) {
			err = classify(operation, req.Model, err)
		}
		lastErr = err
		g.logger.Warn("completion failed", "operation", operation, "provider", g.provider.Name(),
			"attempt", attempt, "max_retries", g.config.MaxRetries, "error", err)

		if !retryable(err) || attempt == g.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", &AIError{Type: ErrTypeNetwork, Operation: operation, Model: req.Model, Message: "deadline exceeded", Cause: ctx.Err()}
		case <-time.After(time.Duration(attempt) * g.config.RetryDelay):
		}
	}
	return "", lastErr
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
