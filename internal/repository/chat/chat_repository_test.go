package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyunix/go-converse/internal/database"
	"github.com/iyunix/go-converse/internal/domain"
	"github.com/iyunix/go-converse/internal/logging"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T) (ChatRepository, *gorm.DB) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewChatRepository(db, &logging.NoOpLogger{}), db
}

func newChat(owner, title string, updated time.Time) *domain.Chat {
	return &domain.Chat{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Title:       title,
		TitleSource: domain.TitleSourceDefault,
		Tags:        []string{},
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
}

func msg(seq int, role domain.Role, content string) domain.Message {
	return domain.Message{Seq: seq, Role: role, Content: content, CreatedAt: baseTime}
}

func TestCreateAndFindByID(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := newChat("owner-1", "New Chat", baseTime)
	c.Tags = []string{"go", "db"}
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, int64(1), c.Version)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, []string{"go", "db"}, got.Tags)
	assert.Empty(t, got.Messages)
	assert.Nil(t, got.Preview)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestCreate_Validation(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	assert.Error(t, repo.Create(ctx, nil))
	assert.Error(t, repo.Create(ctx, newChat("", "x", baseTime)))

	long := newChat("o", string(make([]rune, domain.MaxTitleRunes+1)), baseTime)
	assert.Error(t, repo.Create(ctx, long))
}

func TestSaveExchange_NewChatAndAppend(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := newChat("owner-1", "Hello", baseTime)
	err := repo.SaveExchange(ctx, c, Exchange{
		CreateChat: true,
		Append:     []domain.Message{msg(0, domain.RoleUser, "hello"), msg(1, domain.RoleAssistant, "hi there")},
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "hi there", got.Messages[1].Content)

	c.UpdatedAt = baseTime.Add(time.Minute)
	err = repo.SaveExchange(ctx, c, Exchange{
		Append: []domain.Message{msg(2, domain.RoleUser, "again"), msg(3, domain.RoleAssistant, "sure")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Version)

	got, err = repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)
	for i, m := range got.Messages {
		assert.Equal(t, i, m.Seq)
	}
}

func TestSaveExchange_StaleVersionConflicts(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := newChat("owner-1", "Race", baseTime)
	require.NoError(t, repo.SaveExchange(ctx, c, Exchange{CreateChat: true}))

	stale := *c
	require.NoError(t, repo.SaveExchange(ctx, c, Exchange{
		Append: []domain.Message{msg(0, domain.RoleUser, "first"), msg(1, domain.RoleAssistant, "one")},
	}))

	err := repo.SaveExchange(ctx, &stale, Exchange{
		Append: []domain.Message{msg(0, domain.RoleUser, "second"), msg(1, domain.RoleAssistant, "two")},
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(1), stale.Version)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "first", got.Messages[0].Content)
}

func TestSaveExchange_DuplicateSeqRollsBack(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	c := newChat("owner-1", "Seq", baseTime)
	require.NoError(t, repo.SaveExchange(ctx, c, Exchange{
		CreateChat: true,
		Append:     []domain.Message{msg(0, domain.RoleUser, "q"), msg(1, domain.RoleAssistant, "a")},
	}))

	preview := "changed"
	c.Preview = &preview
	err := repo.SaveExchange(ctx, c, Exchange{Append: []domain.Message{msg(1, domain.RoleUser, "dup")}})
	assert.ErrorIs(t, err, ErrConflict)

	var stored domain.Chat
	require.NoError(t, db.First(&stored, "id = ?", c.ID).Error)
	assert.Equal(t, int64(1), stored.Version)
	assert.Nil(t, stored.Preview)
}

func TestSaveExchange_TruncateReplacesTail(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := newChat("owner-1", "Regen", baseTime)
	require.NoError(t, repo.SaveExchange(ctx, c, Exchange{
		CreateChat: true,
		Append:     []domain.Message{msg(0, domain.RoleUser, "q"), msg(1, domain.RoleAssistant, "old")},
	}))

	require.NoError(t, repo.SaveExchange(ctx, c, Exchange{
		Truncate:     true,
		TruncateFrom: 1,
		Append:       []domain.Message{msg(1, domain.RoleAssistant, "new")},
	}))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "new", got.Messages[1].Content)
}

func TestFindByOwnerWithPagination(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newChat("owner-1", "chat", baseTime.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newChat("owner-2", "other", baseTime)))

	page, total, err := repo.FindByOwnerWithPagination(ctx, "owner-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].UpdatedAt.After(page[1].UpdatedAt))

	page, _, err = repo.FindByOwnerWithPagination(ctx, "owner-1", 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	_, _, err = repo.FindByOwnerWithPagination(ctx, "owner-1", 0, 0)
	assert.Error(t, err)
}

func TestUpdateColumns(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := newChat("owner-1", "Before", baseTime)
	require.NoError(t, repo.Create(ctx, c))

	c.Title = "After"
	c.IsStarred = true
	c.Tags = []string{"work"}
	c.UpdatedAt = baseTime.Add(time.Hour)
	require.NoError(t, repo.UpdateColumns(ctx, c, "title", "is_starred", "tags"))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.True(t, got.IsStarred)
	assert.Equal(t, []string{"work"}, got.Tags)
	assert.True(t, got.UpdatedAt.Equal(baseTime.Add(time.Hour)))

	c.IsStarred = false
	require.NoError(t, repo.UpdateColumns(ctx, c, "is_starred"))
	got, err = repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsStarred)

	foreign := *c
	foreign.OwnerID = "owner-2"
	assert.ErrorIs(t, repo.UpdateColumns(ctx, &foreign, "title"), ErrChatNotFound)
}

func TestShareTokenUniqueness(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	a := newChat("owner-1", "A", baseTime)
	b := newChat("owner-1", "B", baseTime)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	token := "same-token"
	exp := baseTime.Add(24 * time.Hour)
	a.IsShared, a.ShareToken, a.ShareExpiresAt = true, &token, &exp
	require.NoError(t, repo.UpdateColumns(ctx, a, "is_shared", "share_token", "share_expires_at"))

	b.IsShared, b.ShareToken, b.ShareExpiresAt = true, &token, &exp
	assert.ErrorIs(t, repo.UpdateColumns(ctx, b, "is_shared", "share_token", "share_expires_at"), ErrDuplicateShareToken)

	got, err := repo.FindByShareToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = repo.FindByShareToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDelete(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	c := newChat("owner-1", "Gone", baseTime)
	require.NoError(t, repo.SaveExchange(ctx, c, Exchange{
		CreateChat: true,
		Append:     []domain.Message{msg(0, domain.RoleUser, "q"), msg(1, domain.RoleAssistant, "a")},
	}))

	assert.ErrorIs(t, repo.Delete(ctx, c.ID, "owner-2"), ErrChatNotFound)
	require.NoError(t, repo.Delete(ctx, c.ID, "owner-1"))

	var count int64
	require.NoError(t, db.Model(&domain.Message{}).Where("chat_id = ?", c.ID).Count(&count).Error)
	assert.Zero(t, count)
	_, err := repo.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestExpiredSharesDeleteAndRevoke(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := baseTime

	share := func(c *domain.Chat, token string, exp time.Time) {
		c.IsShared, c.ShareToken, c.ShareExpiresAt = true, &token, &exp
		require.NoError(t, repo.UpdateColumns(ctx, c, "is_shared", "share_token", "share_expires_at"))
	}

	expired := newChat("o", "expired", now)
	live := newChat("o", "live", now)
	private := newChat("o", "private", now)
	for _, c := range []*domain.Chat{expired, live, private} {
		require.NoError(t, repo.Create(ctx, c))
	}
	share(expired, "t1", now.Add(-time.Second))
	share(live, "t2", now.Add(time.Hour))

	shares, err := repo.ExpiredShares(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []ExpiredShare{{ID: expired.ID, Token: "t1"}}, shares)

	n, err := repo.RevokeShares(ctx, shares, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err := repo.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsShared)
	assert.Nil(t, got.ShareToken)

	share(expired, "t3", now.Add(-time.Minute))
	shares, err = repo.ExpiredShares(ctx, now)
	require.NoError(t, err)
	n, err = repo.DeleteChats(ctx, shares)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
	_, err = repo.FindByID(ctx, live.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(ctx, private.ID)
	assert.NoError(t, err)
}

func TestSweepSkipsSharesRenewedAfterScan(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	now := baseTime

	share := func(c *domain.Chat, token string, exp time.Time) {
		c.IsShared, c.ShareToken, c.ShareExpiresAt = true, &token, &exp
		require.NoError(t, repo.UpdateColumns(ctx, c, "is_shared", "share_token", "share_expires_at"))
	}

	c := newChat("o", "renewed", now)
	require.NoError(t, repo.Create(ctx, c))
	m := msg(0, domain.RoleUser, "hi")
	m.ChatID = c.ID
	require.NoError(t, db.Create(&m).Error)
	share(c, "stale", now.Add(-time.Hour))

	shares, err := repo.ExpiredShares(ctx, now)
	require.NoError(t, err)
	require.Len(t, shares, 1)

	share(c, "renewed", now.Add(30*24*time.Hour))

	n, err := repo.RevokeShares(ctx, shares, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.DeleteChats(ctx, shares)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsShared)
	require.NotNil(t, got.ShareToken)
	assert.Equal(t, "renewed", *got.ShareToken)
	assert.Len(t, got.Messages, 1)
}
