// File: internal/repository/message/interface.go
package message

import (
	"context"
	"time"

	"github.com/iyunix/go-converse/internal/domain"
)

type MessageRepository interface {
	FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error)
	FindBySeq(ctx context.Context, chatID string, seq int) (*domain.Message, error)
	UpdateFeedback(ctx context.Context, chatID string, seq int, feedback *string, at time.Time) error
	CountByChatID(ctx context.Context, chatID string) (int64, error)
}
