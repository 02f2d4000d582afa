// File: internal/domain/chat.go
package domain

import "time"

// TitleSource records where a chat title came from. Only titles the owner
// set explicitly are protected from inference.
type TitleSource string

const (
	TitleSourceDefault     TitleSource = "default"
	TitleSourceProvisional TitleSource = "provisional"
	TitleSourceGenerated   TitleSource = "generated"
	TitleSourceUser        TitleSource = "user"
)

const (
	DefaultChatTitle = "New Chat"
	MaxTitleRunes    = 100
	PreviewRunes     = 100
)

// Chat represents a single conversation thread.
type Chat struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	OwnerID        string      `gorm:"not null;index;size:128" json:"-"`
	Title          string      `gorm:"not null;size:400" json:"title"`
	TitleSource    TitleSource `gorm:"not null;size:16" json:"titleSource"`
	IsStarred      bool        `gorm:"not null;default:false" json:"isStarred"`
	Tags           []string    `gorm:"serializer:json" json:"tags"`
	IsShared       bool        `gorm:"not null;default:false;index" json:"isShared"`
	ShareToken     *string     `gorm:"uniqueIndex;size:64" json:"shareToken,omitempty"`
	ShareExpiresAt *time.Time  `json:"shareExpiresAt,omitempty"`
	Preview        *string     `gorm:"size:512" json:"preview"`
	Version        int64       `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time   `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime:false;index" json:"updatedAt"`

	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages"`
}

// TitleReplaceable reports whether title inference may overwrite the title.
func (c *Chat) TitleReplaceable() bool {
	return c.TitleSource != TitleSourceUser
}

// LastMessage returns the most recent message or nil for an empty chat.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// ShareActive reports whether the chat is publicly readable at now.
func (c *Chat) ShareActive(now time.Time) bool {
	return c.IsShared && c.ShareToken != nil && c.ShareExpiresAt != nil && c.ShareExpiresAt.After(now)
}

// ClearSharing drops all share metadata.
func (c *Chat) ClearSharing() {
	c.IsShared = false
	c.ShareToken = nil
	c.ShareExpiresAt = nil
}
