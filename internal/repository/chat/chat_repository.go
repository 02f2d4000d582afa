package chat

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iyunix/go-converse/internal/domain"
	"github.com/iyunix/go-converse/internal/logging"
)

var (
	ErrChatNotFound        = errors.New("chat not found")
	ErrConflict            = errors.New("chat was modified concurrently")
	ErrDuplicateShareToken = errors.New("share token already in use")
)

type gormChatRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

func NewChatRepository(db *gorm.DB, logger logging.Logger) ChatRepository {
	return &gormChatRepository{db: db, logger: logger}
}

// Create inserts an empty chat. Messages attached to chat are ignored.
func (r *gormChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	if err := r.validateChatInput(chat); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	if chat.Version == 0 {
		chat.Version = 1
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(chat).Error; err != nil {
		r.logger.Error("[ChatRepository] create failed", "chat_id", chat.ID, "error", err)
		return errors.Wrap(err, "database error creating chat")
	}
	r.logger.Debug("[ChatRepository] chat created", "chat_id", chat.ID)
	return nil
}

// FindByID loads a chat with its messages ordered by position.
func (r *gormChatRepository) FindByID(ctx context.Context, id string) (*domain.Chat, error) {
	if id == "" {
		return nil, ErrChatNotFound
	}
	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&chat).Error
	return r.handleFindError(err, &chat, "FindByID")
}

func (r *gormChatRepository) FindByShareToken(ctx context.Context, token string) (*domain.Chat, error) {
	if token == "" {
		return nil, ErrChatNotFound
	}
	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("share_token = ?", token).
		First(&chat).Error
	return r.handleFindError(err, &chat, "FindByShareToken")
}

// FindByOwnerWithPagination returns one page of an owner's chats, most
// recently updated first, plus the owner's total chat count.
func (r *gormChatRepository) FindByOwnerWithPagination(ctx context.Context, ownerID string, limit, offset int) ([]domain.Chat, int64, error) {
	if ownerID == "" {
		return nil, 0, errors.New("invalid owner ID")
	}
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Chat{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		r.logger.Error("[ChatRepository] count failed", "error", err)
		return nil, 0, errors.Wrap(err, "database error counting chats")
	}

	var chats []domain.Chat
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error
	if err != nil {
		r.logger.Error("[ChatRepository] paginated query failed", "error", err)
		return nil, 0, errors.Wrap(err, "database error retrieving paginated chats")
	}
	return chats, total, nil
}

// SaveExchange applies an exchange and the chat's metadata in one
// transaction. For existing chats chat.Version must match the stored version;
// otherwise ErrConflict is returned and nothing is written.
func (r *gormChatRepository) SaveExchange(ctx context.Context, chat *domain.Chat, ex Exchange) error {
	if err := r.validateChatInput(chat); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	expected := chat.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ex.CreateChat {
			chat.Version = 1
			if err := tx.Omit(clause.Associations).Create(chat).Error; err != nil {
				return errors.Wrap(err, "insert chat")
			}
		} else {
			res := tx.Model(&domain.Chat{}).
				Where("id = ? AND version = ?", chat.ID, expected).
				Updates(map[string]interface{}{
					"title":        chat.Title,
					"title_source": chat.TitleSource,
					"preview":      chat.Preview,
					"updated_at":   chat.UpdatedAt,
					"version":      expected + 1,
				})
			if res.Error != nil {
				return errors.Wrap(res.Error, "update chat")
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		}

		if ex.Truncate {
			if err := tx.Where("chat_id = ? AND seq >= ?", chat.ID, ex.TruncateFrom).Delete(&domain.Message{}).Error; err != nil {
				return errors.Wrap(err, "truncate messages")
			}
		}

		if len(ex.Append) > 0 {
			msgs := make([]domain.Message, len(ex.Append))
			copy(msgs, ex.Append)
			for i := range msgs {
				msgs[i].ID = 0
				msgs[i].ChatID = chat.ID
			}
			if err := tx.Create(&msgs).Error; err != nil {
				if isUniqueViolation(err) {
					return ErrConflict
				}
				return errors.Wrap(err, "insert messages")
			}
		}
		return nil
	})
	if err != nil {
		chat.Version = expected
		if errors.Is(err, ErrConflict) || (ex.CreateChat && isUniqueViolation(err)) {
			r.logger.Warn("[ChatRepository] concurrent modification rejected", "chat_id", chat.ID)
			return ErrConflict
		}
		r.logger.Error("[ChatRepository] save exchange failed", "chat_id", chat.ID, "error", err)
		return errors.Wrap(err, "database error saving exchange")
	}
	if !ex.CreateChat {
		chat.Version = expected + 1
	}
	return nil
}

// UpdateColumns writes the named columns from chat. updated_at is always
// included.
func (r *gormChatRepository) UpdateColumns(ctx context.Context, chat *domain.Chat, columns ...string) error {
	if err := r.validateChatInput(chat); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	cols := append([]string{"updated_at"}, columns...)

	res := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND owner_id = ?", chat.ID, chat.OwnerID).
		Select(cols).
		Omit(clause.Associations).
		Updates(chat)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicateShareToken
		}
		r.logger.Error("[ChatRepository] update failed", "chat_id", chat.ID, "error", res.Error)
		return errors.Wrap(res.Error, "database error updating chat")
	}
	if res.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Delete removes a chat and its messages. The owner predicate keeps the
// delete scoped even if the caller skipped its own check.
func (r *gormChatRepository) Delete(ctx context.Context, chatID, ownerID string) error {
	if chatID == "" || ownerID == "" {
		return errors.New("invalid chat ID or owner ID")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", chatID, ownerID).Delete(&domain.Chat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrChatNotFound
		}
		return tx.Where("chat_id = ?", chatID).Delete(&domain.Message{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return ErrChatNotFound
		}
		r.logger.Error("[ChatRepository] delete failed", "chat_id", chatID, "error", err)
		return errors.Wrap(err, "database error deleting chat")
	}
	r.logger.Info("[ChatRepository] chat deleted", "chat_id", chatID)
	return nil
}

// ExpiredShares lists shared chats whose window closed at or before now.
// Expiry is compared in Go so sqlite's text timestamps behave like postgres.
func (r *gormChatRepository) ExpiredShares(ctx context.Context, now time.Time) ([]ExpiredShare, error) {
	var rows []struct {
		ID             string
		ShareToken     *string
		ShareExpiresAt *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Select("id", "share_token", "share_expires_at").
		Where("is_shared = ?", true).
		Find(&rows).Error
	if err != nil {
		r.logger.Error("[ChatRepository] expired share scan failed", "error", err)
		return nil, errors.Wrap(err, "database error scanning shares")
	}

	expired := make([]ExpiredShare, 0)
	for _, row := range rows {
		if row.ShareToken == nil || row.ShareExpiresAt == nil || row.ShareExpiresAt.After(now) {
			continue
		}
		expired = append(expired, ExpiredShare{ID: row.ID, Token: *row.ShareToken})
	}
	return expired, nil
}

// DeleteChats removes the given chats and their messages. A chat is only
// removed while it still carries the scanned share token.
func (r *gormChatRepository) DeleteChats(ctx context.Context, shares []ExpiredShare) (int64, error) {
	if len(shares) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sh := range shares {
			res := tx.Where("id = ? AND is_shared = ? AND share_token = ?", sh.ID, true, sh.Token).
				Delete(&domain.Chat{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			deleted += res.RowsAffected
			if err := tx.Where("chat_id = ?", sh.ID).Delete(&domain.Message{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("[ChatRepository] bulk delete failed", "error", err)
		return 0, errors.Wrap(err, "database error deleting chats")
	}
	r.logger.Info("[ChatRepository] bulk deleted chats", "count", deleted)
	return deleted, nil
}

// RevokeShares clears sharing metadata on the given chats, keeping the chats.
// Shares renewed since the scan are skipped.
func (r *gormChatRepository) RevokeShares(ctx context.Context, shares []ExpiredShare, now time.Time) (int64, error) {
	if len(shares) == 0 {
		return 0, nil
	}
	var revoked int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sh := range shares {
			res := tx.Model(&domain.Chat{}).
				Where("id = ? AND is_shared = ? AND share_token = ?", sh.ID, true, sh.Token).
				Updates(map[string]interface{}{
					"is_shared":        false,
					"share_token":      nil,
					"share_expires_at": nil,
					"updated_at":       now,
				})
			if res.Error != nil {
				return res.Error
			}
			revoked += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		r.logger.Error("[ChatRepository] bulk revoke failed", "error", err)
		return 0, errors.Wrap(err, "database error revoking shares")
	}
	return revoked, nil
}

// ===== VALIDATION HELPERS =====

func (r *gormChatRepository) validateChatInput(chat *domain.Chat) error {
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	if chat.ID == "" {
		return errors.New("chat ID is required")
	}
	if chat.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	if len([]rune(chat.Title)) > domain.MaxTitleRunes {
		return errors.Errorf("title must be %d characters or less", domain.MaxTitleRunes)
	}
	return nil
}

// ===== ERROR HANDLING HELPERS =====

func (r *gormChatRepository) handleFindError(err error, chat *domain.Chat, operation string) (*domain.Chat, error) {
	if err == nil {
		return chat, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	r.logger.Error("[ChatRepository] query failed", "operation", operation, "error", err)
	return nil, errors.Wrap(err, "database query failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
