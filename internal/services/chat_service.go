// File: internal/services/chat_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iyunix/go-converse/internal/domain"
	"github.com/iyunix/go-converse/internal/lease"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/metrics"
	"github.com/iyunix/go-converse/internal/repository/chat"
	"github.com/iyunix/go-converse/internal/repository/message"
	"github.com/iyunix/go-converse/internal/services/ai"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

const (
	maxTags     = 20
	maxTagRunes = 50
)

// SendInput is one user turn. An empty ChatID starts a new chat.
type SendInput struct {
	OwnerID string
	ChatID  string
	Text    string
	Image   *domain.Image
}

// SendResult carries the assistant reply and the chat as persisted.
type SendResult struct {
	Reply   string
	Chat    *domain.Chat
	Created bool
}

// UpdateInput holds the owner-editable chat fields; nil means unchanged.
type UpdateInput struct {
	Title     *string
	IsStarred *bool
	Tags      *[]string
	IsShared  *bool
}

type ChatService struct {
	config      *chatservice.Config
	chatRepo    chat.ChatRepository
	messageRepo message.MessageRepository
	gateway     ai.Gateway
	locker      lease.Locker
	shares      *ShareService
	guard       *chatservice.Guard
	metrics     metrics.Recorder
	logger      logging.Logger
	now         func() time.Time
	newID       func() string
}

func NewChatService(
	config *chatservice.Config,
	chatRepo chat.ChatRepository,
	messageRepo message.MessageRepository,
	gateway ai.Gateway,
	locker lease.Locker,
	shares *ShareService,
	recorder metrics.Recorder,
	logger logging.Logger,
) (*ChatService, error) {
	if chatRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "chat repository is required")
	}
	if messageRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "message repository is required")
	}
	if gateway == nil {
		return nil, chatservice.NewValidationError("constructor", "generation gateway is required")
	}
	if locker == nil {
		return nil, chatservice.NewValidationError("constructor", "lease locker is required")
	}
	if shares == nil {
		return nil, chatservice.NewValidationError("constructor", "share service is required")
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

	return &ChatService{
		config:      config,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		gateway:     gateway,
		locker:      locker,
		shares:      shares,
		guard:       chatservice.NewGuard(chatRepo),
		metrics:     recorder,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}, nil
}

// CreateChat creates an empty chat titled "New Chat" unless a title is given.
func (s *ChatService) CreateChat(ctx context.Context, ownerID, title string) (*domain.Chat, error) {
	const op = "create_chat"
	if ownerID == "" {
		return nil, chatservice.NewValidationError(op, "owner is required")
	}

	now := s.now()
	c := &domain.Chat{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Title:       domain.DefaultChatTitle,
		TitleSource: domain.TitleSourceDefault,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t := strings.TrimSpace(title); t != "" {
		c.Title = chatservice.TruncateText(t, domain.MaxTitleRunes)
		c.TitleSource = domain.TitleSourceUser
	}

	if err := s.chatRepo.Create(ctx, c); err != nil {
		s.logger.Error("failed to create chat", "owner_id", ownerID, "error", err)
		return nil, chatservice.NewStorageError(op, err)
	}
	s.logger.Info("chat created", "chat_id", c.ID, "owner_id", ownerID)
	return c, nil
}

func (s *ChatService) GetChat(ctx context.Context, ownerID, chatID string) (*domain.Chat, error) {
	return s.guard.Load(ctx, "get_chat", ownerID, chatID)
}

// SendMessage appends a user message, generates the assistant reply, infers a
// title on the first exchange and persists everything in one write. Nothing
// is persisted when generation fails.
func (s *ChatService) SendMessage(ctx context.Context, in SendInput) (*SendResult, error) {
	const op = "send_message"

	text := strings.TrimSpace(in.Text)
	if text == "" {
		s.metrics.MessageSent("invalid")
		return nil, chatservice.NewValidationError(op, "message cannot be empty")
	}
	if utf8.RuneCountInString(text) > s.config.MaxMessageRunes {
		s.metrics.MessageSent("invalid")
		return nil, chatservice.NewValidationError(op, "message is too long")
	}
	if in.Image != nil && strings.TrimSpace(in.Image.URL) == "" {
		s.metrics.MessageSent("invalid")
		return nil, chatservice.NewValidationError(op, "image url cannot be empty")
	}
	if in.OwnerID == "" {
		return nil, chatservice.NewValidationError(op, "owner is required")
	}

	var c *domain.Chat
	created := in.ChatID == ""
	if created {
		now := s.now()
		c = &domain.Chat{
			ID:          s.newID(),
			OwnerID:     in.OwnerID,
			Title:       chatservice.ProvisionalTitle(text),
			TitleSource: domain.TitleSourceProvisional,
			Tags:        []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	} else {
		locked, release, err := s.lockChat(ctx, op, in.OwnerID, in.ChatID)
		if err != nil {
			s.metrics.MessageSent(outcomeOf(err))
			return nil, err
		}
		defer release()
		c = locked
	}

	userMsg := domain.Message{
		Seq:       len(c.Messages),
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	}
	if in.Image != nil {
		userMsg.Images = []domain.Image{*in.Image}
	}
	transcript := append(c.Messages[:len(c.Messages):len(c.Messages)], userMsg)

	reply, err := s.generate(ctx, op, transcript)
	if err != nil {
		s.metrics.MessageSent(outcomeOf(err))
		return nil, err
	}

	now := s.now()
	assistantMsg := domain.Message{
		Seq:       userMsg.Seq + 1,
		Role:      domain.RoleAssistant,
		Content:   reply,
		CreatedAt: now,
	}

	if len(transcript)+1 == 2 && c.TitleReplaceable() {
		c.Title, c.TitleSource = s.inferTitle(ctx, text), domain.TitleSourceGenerated
	}
	c.Preview = previewOf(reply)
	c.UpdatedAt = now

	if err := s.chatRepo.SaveExchange(ctx, c, chat.Exchange{
		CreateChat: created,
		Append:     []domain.Message{userMsg, assistantMsg},
	}); err != nil {
		saveErr := s.mapSaveError(op, c.ID, err)
		s.metrics.MessageSent(outcomeOf(saveErr))
		return nil, saveErr
	}

	c.Messages = append(transcript, assistantMsg)
	s.metrics.MessageSent("ok")
	s.logger.Info("message exchanged", "chat_id", c.ID, "messages", len(c.Messages), "created", created)
	return &SendResult{Reply: reply, Chat: c, Created: created}, nil
}

// Regenerate replaces the last assistant reply with a fresh one generated from
// the preceding messages. A chat whose last message is not an assistant reply
// is returned unchanged with an empty reply.
func (s *ChatService) Regenerate(ctx context.Context, ownerID, chatID string) (*SendResult, error) {
	const op = "regenerate"

	c, release, err := s.lockChat(ctx, op, ownerID, chatID)
	if err != nil {
		return nil, err
	}
	defer release()

	last := c.LastMessage()
	if last == nil || last.Role != domain.RoleAssistant || len(c.Messages) < 2 {
		return &SendResult{Chat: c}, nil
	}
	history := c.Messages[:len(c.Messages)-1]

	reply, err := s.generate(ctx, op, history)
	if err != nil {
		return nil, err
	}

	now := s.now()
	replacement := domain.Message{
		Seq:       last.Seq,
		Role:      domain.RoleAssistant,
		Content:   reply,
		CreatedAt: now,
	}
	c.Preview = previewOf(reply)
	c.UpdatedAt = now

	if err := s.chatRepo.SaveExchange(ctx, c, chat.Exchange{
		Truncate:     true,
		TruncateFrom: last.Seq,
		Append:       []domain.Message{replacement},
	}); err != nil {
		return nil, s.mapSaveError(op, c.ID, err)
	}

	c.Messages = append(history[:len(history):len(history)], replacement)
	s.logger.Info("reply regenerated", "chat_id", c.ID, "seq", replacement.Seq)
	return &SendResult{Reply: reply, Chat: c}, nil
}

// UpdateChat applies owner edits. isShared=false revokes sharing and
// isShared=true issues a share link when none is active.
func (s *ChatService) UpdateChat(ctx context.Context, ownerID, chatID string, in UpdateInput) (*domain.Chat, error) {
	const op = "update_chat"
	if in.Title == nil && in.IsStarred == nil && in.Tags == nil && in.IsShared == nil {
		return nil, chatservice.NewValidationError(op, "No valid fields to update")
	}

	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, chatservice.NewValidationError(op, "title cannot be empty")
		}
		title = chatservice.TruncateText(title, domain.MaxTitleRunes)
	}
	var tags []string
	if in.Tags != nil {
		var err error
		if tags, err = normalizeTags(*in.Tags); err != nil {
			return nil, chatservice.NewValidationError(op, err.Error())
		}
	}

	var c *domain.Chat
	if in.Title != nil {
		// Title writes race with an in-flight exchange, which also writes the title.
		locked, release, err := s.lockChat(ctx, op, ownerID, chatID)
		if err != nil {
			return nil, err
		}
		defer release()
		c = locked
	} else {
		loaded, err := s.guard.Load(ctx, op, ownerID, chatID)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	var columns []string
	if in.Title != nil {
		c.Title, c.TitleSource = title, domain.TitleSourceUser
		columns = append(columns, "title", "title_source")
	}
	if in.IsStarred != nil {
		c.IsStarred = *in.IsStarred
		columns = append(columns, "is_starred")
	}
	if in.Tags != nil {
		c.Tags = tags
		columns = append(columns, "tags")
	}
	if len(columns) > 0 {
		c.UpdatedAt = s.now()
		if err := s.chatRepo.UpdateColumns(ctx, c, columns...); err != nil {
			if errors.Is(err, chat.ErrChatNotFound) {
				return nil, chatservice.NewNotFoundError(op, ownerID, chatID)
			}
			return nil, chatservice.NewStorageError(op, err)
		}
	}

	if in.IsShared != nil {
		if *in.IsShared {
			if !c.ShareActive(s.now()) {
				if _, err := s.shares.Share(ctx, ownerID, chatID); err != nil {
					return nil, err
				}
			}
		} else if err := s.shares.Unshare(ctx, ownerID, chatID); err != nil {
			return nil, err
		}
	}

	return s.guard.Load(ctx, op, ownerID, chatID)
}

func (s *ChatService) DeleteChat(ctx context.Context, ownerID, chatID string) error {
	const op = "delete_chat"
	if _, err := s.guard.Load(ctx, op, ownerID, chatID); err != nil {
		return err
	}
	if err := s.chatRepo.Delete(ctx, chatID, ownerID); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return chatservice.NewNotFoundError(op, ownerID, chatID)
		}
		return chatservice.NewStorageError(op, err)
	}
	s.logger.Info("chat deleted", "chat_id", chatID, "owner_id", ownerID)
	return nil
}

// SetMessageFeedback records like/dislike on an assistant message; nil clears it.
func (s *ChatService) SetMessageFeedback(ctx context.Context, ownerID, chatID string, seq int, feedback *string) (*domain.Message, error) {
	const op = "message_feedback"
	if feedback != nil && *feedback != domain.FeedbackLike && *feedback != domain.FeedbackDislike {
		return nil, chatservice.NewValidationError(op, "feedback must be like, dislike or null")
	}

	c, err := s.guard.Load(ctx, op, ownerID, chatID)
	if err != nil {
		return nil, err
	}
	if seq < 0 || seq >= len(c.Messages) {
		return nil, &chatservice.ChatError{Type: chatservice.ErrTypeNotFound, Operation: op, Message: "message not found", ChatID: chatID}
	}
	if c.Messages[seq].Role != domain.RoleAssistant {
		return nil, chatservice.NewValidationError(op, "feedback is only accepted on assistant messages")
	}

	if err := s.messageRepo.UpdateFeedback(ctx, chatID, seq, feedback, s.now()); err != nil {
		if errors.Is(err, message.ErrMessageNotFound) {
			return nil, &chatservice.ChatError{Type: chatservice.ErrTypeNotFound, Operation: op, Message: "message not found", ChatID: chatID}
		}
		return nil, chatservice.NewStorageError(op, err)
	}
	return s.messageRepo.FindBySeq(ctx, chatID, seq)
}

// lockChat authorizes, takes the per-chat lease and reloads the chat so the
// caller works on the state current under the lease.
func (s *ChatService) lockChat(ctx context.Context, op, ownerID, chatID string) (*domain.Chat, func(), error) {
	if _, err := s.guard.Load(ctx, op, ownerID, chatID); err != nil {
		return nil, nil, err
	}

	l, err := s.locker.Acquire(ctx, chatID, s.config.LeaseTTL, s.config.LeaseWait)
	if err != nil {
		if errors.Is(err, lease.ErrNotAcquired) {
			return nil, nil, chatservice.NewConflictError(op, chatID, err)
		}
		return nil, nil, chatservice.NewStorageError(op, err)
	}
	release := func() {
		// The request context may already be done; release regardless.
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release chat lease", "chat_id", chatID, "error", err)
		}
	}

	c, err := s.guard.Load(ctx, op, ownerID, chatID)
	if err != nil {
		release()
		return nil, nil, err
	}
	return c, release, nil
}

// generate calls the gateway under the configured timeout and maps failures
// onto RATE_LIMITED or GENERATION errors.
func (s *ChatService) generate(ctx context.Context, op string, msgs []domain.Message) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.gateway.GenerateReply(gctx, toTurns(msgs))
	s.metrics.ObserveGeneration("reply", time.Since(start), err)
	if err != nil {
		if ai.IsRateLimited(err) {
			s.logger.Warn("generation rate limited", "operation", op, "error", err)
			return "", chatservice.NewRateLimitedError(op, s.config.RateLimitRetryAfter, err)
		}
		s.logger.Error("generation failed", "operation", op, "error", err)
		return "", chatservice.NewGenerationError(op, err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", chatservice.NewGenerationError(op, errors.New("empty reply"))
	}
	return reply, nil
}

func (s *ChatService) inferTitle(ctx context.Context, seed string) string {
	tctx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()

	start := time.Now()
	title, generated := chatservice.InferTitle(tctx, s.gateway, seed)
	var err error
	if !generated {
		err = errors.New("title fallback")
	}
	s.metrics.ObserveGeneration("title", time.Since(start), err)
	s.metrics.TitleInferred(generated)
	return title
}

func (s *ChatService) mapSaveError(op, chatID string, err error) error {
	if errors.Is(err, chat.ErrConflict) {
		s.logger.Warn("exchange rejected by concurrent write", "chat_id", chatID)
		return chatservice.NewConflictError(op, chatID, err)
	}
	s.logger.Error("failed to save exchange", "chat_id", chatID, "error", err)
	return chatservice.NewStorageError(op, err)
}

func toTurns(msgs []domain.Message) []ai.Turn {
	turns := make([]ai.Turn, 0, len(msgs))
	for _, m := range msgs {
		t := ai.Turn{Role: string(m.Role), Content: m.Content}
		for _, img := range m.Images {
			t.ImageURLs = append(t.ImageURLs, img.URL)
		}
		turns = append(turns, t)
	}
	return turns
}

func previewOf(content string) *string {
	p := chatservice.TruncateText(content, domain.PreviewRunes)
	return &p
}

func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > maxTagRunes {
			return nil, errors.New("tags must be 50 characters or less")
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) > maxTags {
		return nil, errors.New("too many tags")
	}
	return tags, nil
}

func outcomeOf(err error) string {
	switch chatservice.TypeOf(err) {
	case chatservice.ErrTypeValidation:
		return "invalid"
	case chatservice.ErrTypeNotFound:
		return "not_found"
	case chatservice.ErrTypeRateLimited:
		return "rate_limited"
	case chatservice.ErrTypeGeneration:
		return "generation_error"
	case chatservice.ErrTypeConflict:
		return "conflict"
	default:
		return "storage_error"
	}
}
