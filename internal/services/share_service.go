// File: internal/services/share_service.go
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/iyunix/go-converse/internal/domain"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/metrics"
	"github.com/iyunix/go-converse/internal/repository/chat"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

// ShareLink is the public handle to a shared chat.
type ShareLink struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

type ShareService struct {
	config   *chatservice.Config
	chatRepo chat.ChatRepository
	guard    *chatservice.Guard
	metrics  metrics.Recorder
	logger   logging.Logger
	now      func() time.Time
	random   func([]byte) (int, error)
}

func NewShareService(config *chatservice.Config, chatRepo chat.ChatRepository, recorder metrics.Recorder, logger logging.Logger) (*ShareService, error) {
	if chatRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "chat repository is required")
	}
	if config == nil {
		config = chatservice.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, chatservice.NewValidationError("config", err.Error())
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &ShareService{
		config:   config,
		chatRepo: chatRepo,
		guard:    chatservice.NewGuard(chatRepo),
		metrics:  recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		random:   rand.Read,
	}, nil
}

// Share issues a fresh token valid for ShareTTL. Sharing an already shared
// chat rotates the token, invalidating the previous link.
func (s *ShareService) Share(ctx context.Context, ownerID, chatID string) (*ShareLink, error) {
	const op = "share_chat"
	c, err := s.guard.Load(ctx, op, ownerID, chatID)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.config.ShareAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, chatservice.NewStorageError(op, err)
		}
		now := s.now()
		expiresAt := now.Add(s.config.ShareTTL)

		c.IsShared = true
		c.ShareToken = &token
		c.ShareExpiresAt = &expiresAt
		c.UpdatedAt = now

		err = s.chatRepo.UpdateColumns(ctx, c, "is_shared", "share_token", "share_expires_at")
		switch {
		case err == nil:
			s.metrics.ShareCreated()
			s.logger.Info("chat shared", "chat_id", chatID, "expires_at", expiresAt)
			return &ShareLink{Token: token, URL: s.shareURL(token), ExpiresAt: expiresAt}, nil
		case errors.Is(err, chat.ErrDuplicateShareToken):
			s.logger.Warn("share token collision, retrying", "chat_id", chatID, "attempt", attempt)
			lastErr = err
		case errors.Is(err, chat.ErrChatNotFound):
			return nil, chatservice.NewNotFoundError(op, ownerID, chatID)
		default:
			return nil, chatservice.NewStorageError(op, err)
		}
	}
	return nil, chatservice.NewStorageError(op, lastErr)
}

// Unshare clears all sharing metadata. Unsharing a private chat succeeds.
func (s *ShareService) Unshare(ctx context.Context, ownerID, chatID string) error {
	const op = "unshare_chat"
	c, err := s.guard.Load(ctx, op, ownerID, chatID)
	if err != nil {
		return err
	}
	if !c.IsShared && c.ShareToken == nil && c.ShareExpiresAt == nil {
		return nil
	}

	c.ClearSharing()
	c.UpdatedAt = s.now()
	if err := s.chatRepo.UpdateColumns(ctx, c, "is_shared", "share_token", "share_expires_at"); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return chatservice.NewNotFoundError(op, ownerID, chatID)
		}
		return chatservice.NewStorageError(op, err)
	}
	s.logger.Info("chat unshared", "chat_id", chatID)
	return nil
}

// GetSharedChat resolves a public token. Unknown, revoked and expired tokens
// all yield the same NOT_FOUND error.
func (s *ShareService) GetSharedChat(ctx context.Context, token string) (*domain.Chat, error) {
	const op = "get_shared_chat"
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, sharedNotFound()
	}

	c, err := s.chatRepo.FindByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return nil, sharedNotFound()
		}
		return nil, &chatservice.ChatError{Type: chatservice.ErrTypeStorage, Operation: op, Message: "failed to load chat", Cause: err}
	}
	if !c.ShareActive(s.now()) {
		return nil, sharedNotFound()
	}
	return c, nil
}

// SweepExpiredShares processes every shared chat whose window has closed.
// In delete mode the whole chat is removed, in revoke mode only its sharing
// metadata. Returns the number of chats affected.
func (s *ShareService) SweepExpiredShares(ctx context.Context) (int64, error) {
	const op = "sweep_expired_shares"
	now := s.now()

	expired, err := s.chatRepo.ExpiredShares(ctx, now)
	if err != nil {
		return 0, chatservice.NewStorageError(op, err)
	}

	var n int64
	switch s.config.SweepMode {
	case chatservice.SweepRevoke:
		n, err = s.chatRepo.RevokeShares(ctx, expired, now)
	default:
		n, err = s.chatRepo.DeleteChats(ctx, expired)
	}
	if err != nil {
		s.logger.Error("sweep failed", "mode", s.config.SweepMode, "error", err)
		return 0, chatservice.NewStorageError(op, err)
	}

	s.metrics.SharesSwept(s.config.SweepMode, n)
	s.logger.Info("expired shares swept", "mode", s.config.SweepMode, "count", n)
	return n, nil
}

func (s *ShareService) shareURL(token string) string {
	return strings.TrimRight(s.config.ShareBaseURL, "/") + "/share/" + token
}

func (s *ShareService) newToken() (string, error) {
	b := make([]byte, s.config.ShareTokenBytes)
	if _, err := s.random(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func sharedNotFound() *chatservice.ChatError {
	return &chatservice.ChatError{Type: chatservice.ErrTypeNotFound, Operation: "get_shared_chat", Message: "chat not found"}
}
