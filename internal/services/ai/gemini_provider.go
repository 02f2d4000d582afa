// File: internal/services/ai/gemini_provider.go
package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API. Assistant turns are sent with the
// "model" role and system turns become the system instruction.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, NewProviderError("init", "failed to create gemini client", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	contents, system := toGeminiContents(req.Turns)
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temp,
		MaxOutputTokens:   int32(req.MaxTokens),
		SystemInstruction: system,
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", classify("completion", req.Model, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", NewEmptyResponseError("completion", req.Model)
	}
	return text, nil
}

func toGeminiContents(turns []Turn) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		switch t.Role {
		case "system":
			system = genai.NewContentFromText(t.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(strings.TrimSpace(t.Content), genai.RoleModel))
		default:
			parts := []*genai.Part{genai.NewPartFromText(strings.TrimSpace(t.Content))}
			for _, url := range t.ImageURLs {
				parts = append(parts, genai.NewPartFromURI(url, mimeTypeFromURL(url)))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	return contents, system
}

func mimeTypeFromURL(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
