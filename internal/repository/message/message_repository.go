package message

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/iyunix/go-converse/internal/domain"
	"github.com/iyunix/go-converse/internal/logging"
)

var ErrMessageNotFound = errors.New("message not found")

type gormMessageRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

func NewMessageRepository(db *gorm.DB, logger logging.Logger) MessageRepository {
	return &gormMessageRepository{db: db, logger: logger}
}

// FindByChatID returns the chat's messages in position order.
func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("seq ASC").
		Find(&messages).Error
	if err != nil {
		r.logger.Error("[MessageRepository] find by chat failed", "chat_id", chatID, "error", err)
		return nil, errors.Wrap(err, "database error fetching messages")
	}
	return messages, nil
}

func (r *gormMessageRepository) FindBySeq(ctx context.Context, chatID string, seq int) (*domain.Message, error) {
	if chatID == "" || seq < 0 {
		return nil, ErrMessageNotFound
	}
	var msg domain.Message
	err := r.db.WithContext(ctx).Where("chat_id = ? AND seq = ?", chatID, seq).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, errors.Wrap(err, "database error fetching message")
	}
	return &msg, nil
}

// UpdateFeedback sets or clears (nil) the feedback on one message and stamps
// the owning chat's updated_at with at, in one transaction.
func (r *gormMessageRepository) UpdateFeedback(ctx context.Context, chatID string, seq int, feedback *string, at time.Time) error {
	if feedback != nil && *feedback != domain.FeedbackLike && *feedback != domain.FeedbackDislike {
		return errors.Errorf("invalid feedback %q", *feedback)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Message{}).
			Where("chat_id = ? AND seq = ?", chatID, seq).
			Update("feedback", feedback)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMessageNotFound
		}
		return tx.Model(&domain.Chat{}).Where("id = ?", chatID).Update("updated_at", at).Error
	})
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		r.logger.Error("[MessageRepository] feedback update failed", "chat_id", chatID, "seq", seq, "error", err)
		return errors.Wrap(err, "database error updating feedback")
	}
	return nil
}

func (r *gormMessageRepository) CountByChatID(ctx context.Context, chatID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "database error counting messages")
	}
	return count, nil
}
