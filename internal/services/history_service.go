// File: internal/services/history_service.go
package services

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/iyunix/go-converse/internal/domain"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/repository/chat"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

// ListQuery selects a page of history. A blank Query lists by recency.
type ListQuery struct {
	Query    string
	Page     int
	PageSize int
}

// ChatSummary is a chat without its transcript.
type ChatSummary struct {
	ID         string
	Title      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	IsStarred  bool
	IsShared   bool
	ShareToken *string
	Preview    *string
	Tags       []string
}

type ChatPage struct {
	Chats    []ChatSummary
	Total    int64
	Page     int
	PageSize int
	HasMore  bool
}

type HistoryService struct {
	config   *chatservice.Config
	chatRepo chat.ChatRepository
	logger   logging.Logger
	// Coalesces identical concurrent queries; nothing outlives the flight.
	flight singleflight.Group
}

func NewHistoryService(config *chatservice.Config, chatRepo chat.ChatRepository, logger logging.Logger) (*HistoryService, error) {
	if chatRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "chat repository is required")
	}
	if config == nil {
		config = chatservice.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, chatservice.NewValidationError("config", err.Error())
	}
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &HistoryService{config: config, chatRepo: chatRepo, logger: logger}, nil
}

// ListChats returns one page of the owner's chats. Non-positive page and
// page size fall back to 1 and the default size; page size is capped.
func (s *HistoryService) ListChats(ctx context.Context, ownerID string, q ListQuery) (*ChatPage, error) {
	const op = "list_chats"
	if ownerID == "" {
		return nil, chatservice.NewValidationError(op, "owner is required")
	}

	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = s.config.DefaultPageSize
	}
	if size > s.config.MaxPageSize {
		size = s.config.MaxPageSize
	}
	// Keeps (page-1)*size a valid offset on every platform and database.
	if maxPage := math.MaxInt32 / size; page > maxPage {
		page = maxPage
	}
	query := strings.TrimSpace(q.Query)

	// The flight outlives any single caller; each caller still honors its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(flightKey(ownerID, query, page, size), func() (interface{}, error) {
		offset := (page - 1) * size
		var chats []domain.Chat
		var total int64
		var err error
		if query != "" {
			chats, total, err = s.chatRepo.Search(flightCtx, ownerID, query, size, offset)
		} else {
			chats, total, err = s.chatRepo.FindByOwnerWithPagination(flightCtx, ownerID, size, offset)
		}
		if err != nil {
			return nil, err
		}

		summaries := make([]ChatSummary, 0, len(chats))
		for i := range chats {
			summaries = append(summaries, summarize(&chats[i]))
		}
		return &ChatPage{
			Chats:    summaries,
			Total:    total,
			Page:     page,
			PageSize: size,
			HasMore:  int64(offset+len(chats)) < total,
		}, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &chatservice.ChatError{Type: chatservice.ErrTypeStorage, Operation: op, Message: "failed to load chats", OwnerID: ownerID, Cause: ctx.Err()}
	}
	v, err := res.Val, res.Err
	if err != nil {
		s.logger.Error("failed to list chats", "owner_id", ownerID, "error", err)
		return nil, &chatservice.ChatError{Type: chatservice.ErrTypeStorage, Operation: op, Message: "failed to load chats", OwnerID: ownerID, Cause: err}
	}
	return v.(*ChatPage), nil
}

func summarize(c *domain.Chat) ChatSummary {
	sum := ChatSummary{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		IsStarred: c.IsStarred,
		IsShared:  c.IsShared,
		Preview:   c.Preview,
		Tags:      c.Tags,
	}
	if c.IsShared {
		sum.ShareToken = c.ShareToken
	}
	if sum.Tags == nil {
		sum.Tags = []string{}
	}
	return sum
}

// flightKey is a fixed-size digest of the query parameters.
func flightKey(ownerID, query string, page, size int) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(ownerID))
	h.Write([]byte{0})
	h.Write([]byte(query))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(page))
	binary.BigEndian.PutUint64(buf[8:], uint64(size))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}
