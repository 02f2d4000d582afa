package chat

import (
	"context"
	"time"

	"github.com/iyunix/go-converse/internal/domain"
)

// Exchange describes one atomic change to a chat's transcript. When Truncate
// is set, messages at positions >= TruncateFrom are removed before Append is
// written.
type Exchange struct {
	CreateChat   bool
	Truncate     bool
	TruncateFrom int
	Append       []domain.Message
}

// ExpiredShare pins a share observed as expired. Re-sharing rotates the
// token, so writes keyed on it leave a renewed share alone.
type ExpiredShare struct {
	ID    string
	Token string
}

// ChatRepository handles chat data operations.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	FindByID(ctx context.Context, id string) (*domain.Chat, error)
	FindByShareToken(ctx context.Context, token string) (*domain.Chat, error)
	FindByOwnerWithPagination(ctx context.Context, ownerID string, limit, offset int) ([]domain.Chat, int64, error)
	Search(ctx context.Context, ownerID, query string, limit, offset int) ([]domain.Chat, int64, error)
	SaveExchange(ctx context.Context, chat *domain.Chat, ex Exchange) error
	UpdateColumns(ctx context.Context, chat *domain.Chat, columns ...string) error
	Delete(ctx context.Context, chatID, ownerID string) error
	ExpiredShares(ctx context.Context, now time.Time) ([]ExpiredShare, error)
	DeleteChats(ctx context.Context, shares []ExpiredShare) (int64, error)
	RevokeShares(ctx context.Context, shares []ExpiredShare, now time.Time) (int64, error)
}
