// File: internal/dtos/chat.go
package dtos

import (
	"html/template"
	"time"

	"github.com/iyunix/go-converse/internal/domain"
	"github.com/iyunix/go-converse/internal/services"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the client-facing part of a failure. RetryAfter is in seconds.
type ErrorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// --- Requests ---

type CreateChatRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest accepts the chat id in the body for POST /messages.
type SendMessageRequest struct {
	ChatID  string        `json:"chatId"`
	Message string        `json:"message"`
	Image   *domain.Image `json:"image,omitempty"`
}

type UpdateChatRequest struct {
	Title     *string   `json:"title,omitempty"`
	IsStarred *bool     `json:"isStarred,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	IsShared  *bool     `json:"isShared,omitempty"`
}

// FeedbackRequest sets or, with a null feedback, clears a reaction.
type FeedbackRequest struct {
	Feedback *string `json:"feedback"`
}

// --- Responses ---

type MessageDTO struct {
	Seq       int            `json:"seq"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Images    []domain.Image `json:"images,omitempty"`
	Feedback  *string        `json:"feedback"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ChatDTO struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	IsStarred      bool         `json:"isStarred"`
	Tags           []string     `json:"tags"`
	IsShared       bool         `json:"isShared"`
	ShareToken     *string      `json:"shareToken,omitempty"`
	ShareExpiresAt *time.Time   `json:"shareExpiresAt,omitempty"`
	Preview        *string      `json:"preview"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Messages       []MessageDTO `json:"messages"`
}

type SendMessageResponse struct {
	Reply   string  `json:"reply"`
	Created bool    `json:"created"`
	Chat    ChatDTO `json:"chat"`
}

type ChatSummaryDTO struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	IsStarred  bool      `json:"isStarred"`
	IsShared   bool      `json:"isShared"`
	ShareToken *string   `json:"shareToken,omitempty"`
	Preview    *string   `json:"preview"`
	Tags       []string  `json:"tags"`
}

type PaginationDTO struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

type ChatListResponse struct {
	Chats      []ChatSummaryDTO `json:"chats"`
	Pagination PaginationDTO    `json:"pagination"`
}

type ShareLinkDTO struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SharedMessageDTO adds the rendered HTML of the content.
type SharedMessageDTO struct {
	MessageDTO
	HTML template.HTML `json:"html"`
}

// SharedChatDTO is the public view of a chat. It never carries the owner
// or any sharing metadata.
type SharedChatDTO struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Tags      []string           `json:"tags"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Messages  []SharedMessageDTO `json:"messages"`
}

type DeleteChatResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ShareStateResponse confirms the sharing state after an unshare.
type ShareStateResponse struct {
	ID       string `json:"id"`
	IsShared bool   `json:"isShared"`
}

type SweepResponse struct {
	Mode  string `json:"mode"`
	Count int64  `json:"count"`
}

// --- Mapping ---

func ToMessageDTO(m *domain.Message) MessageDTO {
	return MessageDTO{
		Seq:       m.Seq,
		Role:      string(m.Role),
		Content:   m.Content,
		Images:    m.Images,
		Feedback:  m.Feedback,
		CreatedAt: m.CreatedAt,
	}
}

func ToChatDTO(c *domain.Chat) ChatDTO {
	dto := ChatDTO{
		ID:        c.ID,
		Title:     c.Title,
		IsStarred: c.IsStarred,
		Tags:      nonNil(c.Tags),
		IsShared:  c.IsShared,
		Preview:   c.Preview,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]MessageDTO, 0, len(c.Messages)),
	}
	if c.IsShared {
		dto.ShareToken = c.ShareToken
		dto.ShareExpiresAt = c.ShareExpiresAt
	}
	for i := range c.Messages {
		dto.Messages = append(dto.Messages, ToMessageDTO(&c.Messages[i]))
	}
	return dto
}

// ToSharedChatDTO maps a chat for public display; render produces the HTML
// for each message.
func ToSharedChatDTO(c *domain.Chat, render func(string) template.HTML) SharedChatDTO {
	dto := SharedChatDTO{
		ID:        c.ID,
		Title:     c.Title,
		Tags:      nonNil(c.Tags),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]SharedMessageDTO, 0, len(c.Messages)),
	}
	for i := range c.Messages {
		m := ToMessageDTO(&c.Messages[i])
		m.Feedback = nil
		dto.Messages = append(dto.Messages, SharedMessageDTO{MessageDTO: m, HTML: render(m.Content)})
	}
	return dto
}

func ToChatListResponse(p *services.ChatPage) ChatListResponse {
	resp := ChatListResponse{
		Chats: make([]ChatSummaryDTO, 0, len(p.Chats)),
		Pagination: PaginationDTO{
			Page:    p.Page,
			Limit:   p.PageSize,
			Total:   p.Total,
			HasMore: p.HasMore,
		},
	}
	for _, s := range p.Chats {
		resp.Chats = append(resp.Chats, ChatSummaryDTO{
			ID:         s.ID,
			Title:      s.Title,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
			IsStarred:  s.IsStarred,
			IsShared:   s.IsShared,
			ShareToken: s.ShareToken,
			Preview:    s.Preview,
			Tags:       nonNil(s.Tags),
		})
	}
	return resp
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
