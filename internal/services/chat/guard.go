// File: internal/services/chat/guard.go
package chat

import (
	"context"
	"errors"

	"github.com/iyunix/go-converse/internal/domain"
	chatrepo "github.com/iyunix/go-converse/internal/repository/chat"
)

// ChatLoader is the read side of the chat store the guard depends on.
type ChatLoader interface {
	FindByID(ctx context.Context, id string) (*domain.Chat, error)
}

// Guard is the single ownership check in front of every chat read or
// mutation. A chat owned by someone else is indistinguishable from a missing
// one.
type Guard struct {
	loader ChatLoader
}

func NewGuard(loader ChatLoader) *Guard {
	return &Guard{loader: loader}
}

// Load returns the chat with messages if ownerID owns it.
func (g *Guard) Load(ctx context.Context, operation, ownerID, chatID string) (*domain.Chat, error) {
	if ownerID == "" || chatID == "" {
		return nil, NewNotFoundError(operation, ownerID, chatID)
	}
	c, err := g.loader.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, chatrepo.ErrChatNotFound) {
			return nil, NewNotFoundError(operation, ownerID, chatID)
		}
		return nil, &ChatError{Type: ErrTypeStorage, Operation: operation, Message: "failed to load chat", ChatID: chatID, Cause: err}
	}
	if c.OwnerID != ownerID {
		return nil, NewNotFoundError(operation, ownerID, chatID)
	}
	return c, nil
}
