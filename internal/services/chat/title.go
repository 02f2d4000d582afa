// File: internal/services/chat/title.go
package chat

import (
	"context"
	"strings"

	"github.com/iyunix/go-converse/internal/domain"
)

const (
	MaxGeneratedTitleRunes = 50
	ProvisionalTitleRunes  = 50
	fallbackTitleWords     = 4
)

// TitleGenerator is the slice of the generation gateway title inference needs.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, seed string) (string, error)
}

// CleanTitle strips one leading and one trailing quote, collapses whitespace
// and caps the result at MaxGeneratedTitleRunes.
func CleanTitle(raw string) string {
	t := strings.TrimSpace(raw)
	t = trimOneQuote(t)
	t = CleanWhitespace(t)
	return strings.TrimSpace(TruncateText(t, MaxGeneratedTitleRunes))
}

// FallbackTitle is the first four words of seed, or "New Chat".
func FallbackTitle(seed string) string {
	words := strings.Fields(seed)
	if len(words) == 0 {
		return domain.DefaultChatTitle
	}
	if len(words) > fallbackTitleWords {
		words = words[:fallbackTitleWords]
	}
	return TruncateText(strings.Join(words, " "), domain.MaxTitleRunes)
}

// ProvisionalTitle is the title of a chat created implicitly by its first message.
func ProvisionalTitle(text string) string {
	t := strings.TrimSpace(TruncateText(strings.TrimSpace(text), ProvisionalTitleRunes))
	if t == "" {
		return domain.DefaultChatTitle
	}
	return t
}

// InferTitle never fails: gateway errors, empty output and output that cleans
// to nothing all fall back to FallbackTitle. The bool reports whether the
// gateway's title was used.
func InferTitle(ctx context.Context, gen TitleGenerator, seed string) (string, bool) {
	raw, err := gen.GenerateTitle(ctx, seed)
	if err != nil {
		return FallbackTitle(seed), false
	}
	if cleaned := CleanTitle(raw); cleaned != "" {
		return cleaned, true
	}
	return FallbackTitle(seed), false
}

func trimOneQuote(s string) string {
	if s == "" {
		return s
	}
	if s[0] == '"' || s[0] == '\'' {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return s
}
