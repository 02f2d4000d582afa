// File: internal/domain/message.go
package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const (
	FeedbackLike    = "like"
	FeedbackDislike = "dislike"
)

// Image is a reference to an uploaded image. The bytes live elsewhere.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// Message represents a single message within a chat. Seq is its 0-based
// position and is unique per chat.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	ChatID    string    `gorm:"not null;size:36;uniqueIndex:idx_chat_seq,priority:1" json:"-"`
	Seq       int       `gorm:"not null;uniqueIndex:idx_chat_seq,priority:2" json:"seq"`
	Role      Role      `gorm:"not null;size:16" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Images    []Image   `gorm:"serializer:json" json:"images,omitempty"`
	Feedback  *string   `gorm:"size:16" json:"feedback"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt"`
}
