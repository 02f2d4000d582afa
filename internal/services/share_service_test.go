package services

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-converse/internal/repository/chat"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

func TestShare_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.send(t, "owner-1", "", "share me")

	link, err := env.shares.Share(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(link.Token)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
	assert.Equal(t, "https://chat.example.com/share/"+link.Token, link.URL)
	assert.Equal(t, env.clock.Now().Add(30*24*time.Hour), link.ExpiresAt)

	owned, err := env.chats.GetChat(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)
	shared, err := env.shares.GetSharedChat(ctx, link.Token)
	require.NoError(t, err)

	assert.Equal(t, owned.ID, shared.ID)
	assert.Equal(t, owned.Title, shared.Title)
	require.Len(t, shared.Messages, len(owned.Messages))
	for i := range owned.Messages {
		assert.Equal(t, owned.Messages[i].Role, shared.Messages[i].Role)
		assert.Equal(t, owned.Messages[i].Content, shared.Messages[i].Content)
	}
}

func TestShare_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.send(t, "owner-1", "", "rotate")

	first, err := env.shares.Share(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)
	second, err := env.shares.Share(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, err = env.shares.GetSharedChat(ctx, first.Token)
	requireChatErr(t, err, chatservice.ErrTypeNotFound)
	_, err = env.shares.GetSharedChat(ctx, second.Token)
	assert.NoError(t, err)
}

func TestShare_RetriesOnTokenCollision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.send(t, "owner-1", "", "a")
	b := env.send(t, "owner-1", "", "b")

	// Every draw yields the same bytes until the third attempt.
	draws := 0
	env.shares.random = func(p []byte) (int, error) {
		draws++
		fill := byte(1)
		if draws >= 3 {
			fill = byte(draws)
		}
		for i := range p {
			p[i] = fill
		}
		return len(p), nil
	}

	first, err := env.shares.Share(ctx, "owner-1", a.Chat.ID)
	require.NoError(t, err)
	second, err := env.shares.Share(ctx, "owner-1", b.Chat.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 3, draws)
}

func TestShare_GivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.send(t, "owner-1", "", "a")
	b := env.send(t, "owner-1", "", "b")

	env.shares.random = func(p []byte) (int, error) {
		for i := range p {
			p[i] = 7
		}
		return len(p), nil
	}
	_, err := env.shares.Share(ctx, "owner-1", a.Chat.ID)
	require.NoError(t, err)
	_, err = env.shares.Share(ctx, "owner-1", b.Chat.ID)
	requireChatErr(t, err, chatservice.ErrTypeStorage)
}

func TestShare_ForeignChat(t *testing.T) {
	env := newTestEnv(t)
	res := env.send(t, "owner-1", "", "mine")

	_, err := env.shares.Share(context.Background(), "owner-2", res.Chat.ID)
	requireChatErr(t, err, chatservice.ErrTypeNotFound)
	requireChatErr(t, env.shares.Unshare(context.Background(), "owner-2", res.Chat.ID), chatservice.ErrTypeNotFound)
}

func TestUnshare_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.send(t, "owner-1", "", "unshare")

	link, err := env.shares.Share(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, env.shares.Unshare(ctx, "owner-1", res.Chat.ID))
		c, err := env.chats.GetChat(ctx, "owner-1", res.Chat.ID)
		require.NoError(t, err)
		assert.False(t, c.IsShared)
		assert.Nil(t, c.ShareToken)
		assert.Nil(t, c.ShareExpiresAt)
	}

	_, err = env.shares.GetSharedChat(ctx, link.Token)
	requireChatErr(t, err, chatservice.ErrTypeNotFound)
}

func TestGetSharedChat_ExpiredAndUnknownAreIdentical(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.send(t, "owner-1", "", "expiring")

	link, err := env.shares.Share(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)

	env.clock.Advance(30*24*time.Hour + time.Second)
	_, expiredErr := env.shares.GetSharedChat(ctx, link.Token)
	_, unknownErr := env.shares.GetSharedChat(ctx, "never-issued")
	_, blankErr := env.shares.GetSharedChat(ctx, "  ")

	expired := requireChatErr(t, expiredErr, chatservice.ErrTypeNotFound)
	unknown := requireChatErr(t, unknownErr, chatservice.ErrTypeNotFound)
	blank := requireChatErr(t, blankErr, chatservice.ErrTypeNotFound)
	assert.Equal(t, unknown, expired)
	assert.Equal(t, unknown, blank)
}

func TestGetSharedChat_ExactExpiryIsClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.send(t, "owner-1", "", "boundary")

	_, err := env.shares.Share(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)
	c, err := env.chats.GetChat(ctx, "owner-1", res.Chat.ID)
	require.NoError(t, err)

	env.clock.Advance(c.ShareExpiresAt.Sub(env.clock.Now()))
	_, err = env.shares.GetSharedChat(ctx, *c.ShareToken)
	requireChatErr(t, err, chatservice.ErrTypeNotFound)
}

func TestSweepExpiredShares(t *testing.T) {
	for _, mode := range []string{chatservice.SweepDelete, chatservice.SweepRevoke} {
		t.Run(mode, func(t *testing.T) {
			env := newTestEnv(t, func(c *chatservice.Config) { c.SweepMode = mode })
			ctx := context.Background()

			old := env.send(t, "owner-1", "", "old share")
			_, err := env.shares.Share(ctx, "owner-1", old.Chat.ID)
			require.NoError(t, err)

			env.clock.Advance(20 * 24 * time.Hour)
			fresh := env.send(t, "owner-1", "", "fresh share")
			_, err = env.shares.Share(ctx, "owner-1", fresh.Chat.ID)
			require.NoError(t, err)
			private := env.send(t, "owner-1", "", "never shared")

			env.clock.Advance(11 * 24 * time.Hour)
			n, err := env.shares.SweepExpiredShares(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			_, err = env.chats.GetChat(ctx, "owner-1", fresh.Chat.ID)
			assert.NoError(t, err)
			_, err = env.chats.GetChat(ctx, "owner-1", private.Chat.ID)
			assert.NoError(t, err)

			swept, err := env.chats.GetChat(ctx, "owner-1", old.Chat.ID)
			if mode == chatservice.SweepDelete {
				requireChatErr(t, err, chatservice.ErrTypeNotFound)
			} else {
				require.NoError(t, err)
				assert.False(t, swept.IsShared)
				assert.Len(t, swept.Messages, 2)
			}

			n, err = env.shares.SweepExpiredShares(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

// renewingRepo runs afterScan between the sweep's scan and its write.
type renewingRepo struct {
	chat.ChatRepository
	afterScan func()
}

func (r *renewingRepo) ExpiredShares(ctx context.Context, now time.Time) ([]chat.ExpiredShare, error) {
	shares, err := r.ChatRepository.ExpiredShares(ctx, now)
	if err == nil && r.afterScan != nil {
		r.afterScan()
	}
	return shares, err
}

func TestSweepExpiredShares_SkipsChatReSharedDuringSweep(t *testing.T) {
	for _, mode := range []string{chatservice.SweepDelete, chatservice.SweepRevoke} {
		t.Run(mode, func(t *testing.T) {
			env := newTestEnv(t, func(c *chatservice.Config) { c.SweepMode = mode })
			ctx := context.Background()

			res := env.send(t, "owner-1", "", "share me again")
			_, err := env.shares.Share(ctx, "owner-1", res.Chat.ID)
			require.NoError(t, err)
			env.clock.Advance(31 * 24 * time.Hour)

			var renewed *ShareLink
			env.shares.chatRepo = &renewingRepo{
				ChatRepository: env.repo,
				afterScan: func() {
					renewed, err = env.shares.Share(ctx, "owner-1", res.Chat.ID)
					require.NoError(t, err)
				},
			}

			n, err := env.shares.SweepExpiredShares(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
			require.NotNil(t, renewed)

			got, err := env.chats.GetChat(ctx, "owner-1", res.Chat.ID)
			require.NoError(t, err)
			assert.True(t, got.IsShared)
			assert.Len(t, got.Messages, 2)

			shared, err := env.shares.GetSharedChat(ctx, renewed.Token)
			require.NoError(t, err)
			assert.Equal(t, res.Chat.ID, shared.ID)
		})
	}
}

func TestShareURLTrimsTrailingSlash(t *testing.T) {
	env := newTestEnv(t, func(c *chatservice.Config) { c.ShareBaseURL = "https://x.test/" })
	assert.Equal(t, "https://x.test/share/abc", env.shares.shareURL("abc"))
	assert.False(t, strings.Contains(env.shares.shareURL("abc"), "//share"))
}
